package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"splitroom/internal/allocation"
	"splitroom/internal/export"
	"splitroom/internal/logger"
	"splitroom/internal/sheets"
	"splitroom/pkg/models"
)

var splitCmd = &cobra.Command{
	Use:   "split <session.json|session.yaml>",
	Short: "Split a session's expenses between roommates",
	Long: `Split every expense of a session between its roommates. Fixed charges are
split evenly. The variable part of each expense is split by presence points
over the expense's own billing window: a present roommate earns one point per
day, a day where everybody was away is shared evenly.`,
	Example: `  # Print the split
  splitroom split august.yaml

  # JSON with the consumption benchmark
  splitroom split august.json --json --benchmark

  # Workbook and spreadsheet
  splitroom split august.yaml --xlsx august.xlsx --sheet https://docs.google.com/spreadsheets/d/<id>/edit`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().Bool("json", false, "Output the allocation as JSON")
	splitCmd.Flags().StringP("output", "o", "", "Write JSON output to this file")
	splitCmd.Flags().Bool("benchmark", false, "Compare consumption with national averages")
	splitCmd.Flags().String("xlsx", "", "Write the allocation to this XLSX file")
	splitCmd.Flags().String("sheet", "", "Google Sheets URL to append the allocation to")
	splitCmd.Flags().Int("timeout", 120, "Spreadsheet timeout in seconds")
}

func runSplit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("split")

	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputFile, _ := cmd.Flags().GetString("output")
	withBenchmark, _ := cmd.Flags().GetBool("benchmark")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	session, err := allocation.LoadSession(args[0])
	if err != nil {
		return err
	}
	alloc, err := allocation.Allocate(session)
	if err != nil {
		return err
	}
	if withBenchmark {
		alloc.Benchmark = allocation.Benchmark(session)
	}

	if xlsxPath != "" || sheetURL != "" {
		tables, err := export.AllocationTables(alloc)
		if err != nil {
			return err
		}
		if xlsxPath != "" {
			if err := export.WriteXLSX(xlsxPath, tables); err != nil {
				return err
			}
		}
		if sheetURL != "" {
			ctx, cancel := commandContext(time.Duration(timeoutSecs) * time.Second)
			defer cancel()
			svc, err := sheets.NewService(ctx, sheetURL, sheets.Credentials{
				JSON: appConfig.GoogleCredentialsJSON,
				File: appConfig.GoogleCredentialsFile,
			})
			if err != nil {
				return fmt.Errorf("google sheets: %w", err)
			}
			if err := svc.AppendTables(ctx, tables); err != nil {
				return fmt.Errorf("google sheets: %w", err)
			}
		}
	}

	if jsonOutput || outputFile != "" {
		data, err := marshalJSON(alloc)
		if err != nil {
			return err
		}
		return writeOutput(data, outputFile, log)
	}

	printAllocation(alloc)
	return nil
}

func printAllocation(a *models.Allocation) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\tPresent\tPoints\t")
	for _, e := range a.Expenses {
		fmt.Fprintf(tw, "%s\t", e.Name)
	}
	fmt.Fprintln(tw, "Total\t")
	for _, r := range a.Roommates {
		fmt.Fprintf(tw, "%s (%s)\t%d\t%.2f\t", r.Name, r.Label, r.DaysPresent, r.Points)
		for _, s := range r.Shares {
			fmt.Fprintf(tw, "%s\t", s.Total)
		}
		fmt.Fprintf(tw, "%s\t\n", r.Total)
	}
	fmt.Fprintf(tw, "Total\t\t%.2f\t", a.TotalPoints)
	for _, e := range a.Expenses {
		fmt.Fprintf(tw, "%s\t", e.Total)
	}
	fmt.Fprintf(tw, "%s\t\n", a.GrandTotal)
	tw.Flush()

	if b := a.Benchmark; b != nil {
		fmt.Printf("\nMonthly spend %.2f € vs %.2f € average (%+.1f%%), efficiency score %d/100\n",
			b.UserMonthlyTotal, b.BenchMonthlyTotal, b.DiffPct, b.Score)
	}
}
