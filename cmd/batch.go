package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"splitroom/internal/bill"
	"splitroom/internal/export"
	"splitroom/internal/logger"
	"splitroom/internal/sheets"
)

var batchCmd = &cobra.Command{
	Use:   "batch <folder>",
	Short: "Analyze every bill in a folder",
	Long: `Analyze every PDF and image bill under a folder with a pool of workers.
Results keep the sorted file order. A bill whose total could not be found is
reported as a warning.

Results can be appended to a Google Sheet (--sheet, or GOOGLE_SHEET_URL with
--sheet "") and written to an XLSX workbook (--xlsx).`,
	Example: `  # Analyze a folder with the default worker count
  splitroom batch ./bills

  # Write an XLSX and append to the configured spreadsheet
  splitroom batch ./bills --xlsx bills.xlsx --to-sheet

  # Append to a specific spreadsheet, 4 workers
  splitroom batch ./bills --sheet https://docs.google.com/spreadsheets/d/<id>/edit --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("workers", 0, "Concurrent analyses (default BATCH_WORKERS)")
	batchCmd.Flags().String("sheet", "", "Google Sheets URL to append results to")
	batchCmd.Flags().Bool("to-sheet", false, "Append results to GOOGLE_SHEET_URL")
	batchCmd.Flags().String("worksheet", "", "Worksheet name (default GOOGLE_SHEET_WORKSHEET)")
	batchCmd.Flags().String("xlsx", "", "Write results to this XLSX file")
	batchCmd.Flags().Bool("json", false, "Output results as JSON")
	batchCmd.Flags().Bool("no-ai", false, "Skip the fixed-cost refiner")
	batchCmd.Flags().Int("timeout", 1800, "Total processing timeout in seconds")
}

// BatchOutput is one entry of the --json output.
type BatchOutput struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")
	cfg := appConfig

	workers, _ := cmd.Flags().GetInt("workers")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	toSheet, _ := cmd.Flags().GetBool("to-sheet")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noAI, _ := cmd.Flags().GetBool("no-ai")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if workers <= 0 {
		workers = cfg.BatchWorkers
	}
	if sheetURL == "" && toSheet {
		if cfg.GoogleSheetURL == "" {
			return fmt.Errorf("--to-sheet needs GOOGLE_SHEET_URL to be set")
		}
		sheetURL = cfg.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = cfg.GoogleSheetWorksheet
	}

	info, err := os.Stat(args[0])
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a folder: %s", args[0])
	}
	paths, err := bill.FindBills(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF or image bills found in %s", args[0])
	}

	log.Info().
		Str("folder", args[0]).
		Int("files", len(paths)).
		Int("workers", workers).
		Bool("sheet", sheetURL != "").
		Str("xlsx", xlsxPath).
		Msg("starting batch analysis")

	ctx, cancel := commandContext(time.Duration(timeoutSecs) * time.Second)
	defer cancel()

	// Connect before the long analysis so bad credentials fail fast.
	var sheet *sheets.Service
	if sheetURL != "" {
		sheet, err = sheets.NewService(ctx, sheetURL, sheets.Credentials{
			JSON: cfg.GoogleCredentialsJSON,
			File: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
	}

	p, err := buildPipeline(ctx, nil, log)
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	results := p.analyzer.AnalyzeFiles(ctx, paths, workers, bill.Options{NoAI: noAI},
		func(done, total int, r bill.BatchResult) {
			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", done, total, r.Filename, r.Status)
			}
		})

	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	log.Info().
		Int("success", counts[bill.StatusSuccess]).
		Int("warning", counts[bill.StatusWarning]).
		Int("error", counts[bill.StatusError]).
		Dur("duration", time.Since(start)).
		Msg("batch analysis completed")

	table := export.BatchTable(worksheet, results, time.Now())
	if xlsxPath != "" {
		if err := export.WriteXLSX(xlsxPath, []export.Table{table}); err != nil {
			return err
		}
	}
	if sheet != nil {
		if err := sheet.AppendTable(ctx, table); err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
	}

	if jsonOutput {
		out := make([]BatchOutput, len(results))
		for i, r := range results {
			out[i] = BatchOutput{File: r.Path, Status: r.Status}
			if r.Error != nil {
				out[i].Error = r.Error.Error()
			}
			if r.Result != nil {
				out[i].Result = r.Result.Response()
			}
		}
		data, err := marshalJSON(out)
		if err != nil {
			return err
		}
		return writeOutput(data, "", log)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tUTILITY\tTOTAL\tFIXED\tSOURCE")
	for _, r := range results {
		if r.Result == nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%v\n", r.Filename, r.Status, r.Error)
			continue
		}
		b := r.Result.Bill
		total := "-"
		if b.TotalAmount != nil {
			total = b.TotalAmount.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Filename, r.Status, b.UtilityType, total, b.FixedTotal, r.Result.Evidence.OCRSource)
	}
	tw.Flush()
	fmt.Printf("\n%d succeeded, %d warnings, %d failed\n",
		counts[bill.StatusSuccess], counts[bill.StatusWarning], counts[bill.StatusError])
	return nil
}
