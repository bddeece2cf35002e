package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"splitroom/internal/bill"
	"splitroom/internal/logger"
	"splitroom/internal/ocr"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Extract total, period and fixed charges from utility bills",
	Long: `Analyze one or more Portuguese utility bills.

Each PDF is analyzed on its own. When every argument is an image, the
images are treated as screenshots of one bill (at most 12) and merged in
argument order.

The fixed-cost refiner runs when AI_API_KEY (or DEEPSEEK_API_KEY) is set;
its suggestion is only applied when it passes the guardrail. Use --no-ai to
skip it.`,
	Example: `  # Analyze a PDF bill
  splitroom analyze fatura-agosto.pdf

  # Several bills as JSON into a file
  splitroom analyze luz.pdf agua.pdf --json -o bills.json

  # Three screenshots of the same bill, without the refiner
  splitroom analyze p1.png p2.png p3.png --no-ai

  # Only the first two pages through the cloud stage
  splitroom analyze long-bill.pdf --pages 1-2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("pages", "", "PDF pages for the cloud stage (e.g. 1-4, 1,3, all)")
	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
	analyzeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	analyzeCmd.Flags().Bool("no-ai", false, "Skip the fixed-cost refiner")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	pages, _ := cmd.Flags().GetString("pages")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	noAI, _ := cmd.Flags().GetBool("no-ai")

	log.Info().
		Strs("files", args).
		Str("pages", pages).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Bool("no_ai", noAI).
		Msg("starting bill analysis")

	docs := make([]ocr.Document, len(args))
	for i, path := range args {
		doc, err := bill.LoadDocument(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}
		doc.Pages = pages
		docs[i] = doc
	}

	ctx, cancel := commandContext(time.Duration(timeoutSecs) * time.Second)
	defer cancel()

	p, err := buildPipeline(ctx, nil, log)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := bill.Options{NoAI: noAI}
	start := time.Now()

	var (
		results []*bill.Result
		names   []string
	)
	if len(docs) > 1 && allImages(docs) {
		res, err := p.analyzer.AnalyzeImages(ctx, docs, opts)
		if err != nil {
			return handleAnalyzeError(err, log)
		}
		results = append(results, res)
		names = append(names, fmt.Sprintf("%d screenshots", len(docs)))
	} else {
		for _, doc := range docs {
			res, err := p.analyzer.Analyze(ctx, doc, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name, handleAnalyzeError(err, log))
			}
			results = append(results, res)
			names = append(names, doc.Name)
		}
	}

	log.Info().
		Int("bills", len(results)).
		Dur("duration", time.Since(start)).
		Msg("bill analysis completed")

	var data []byte
	if jsonOutput {
		var v any = responses(results)
		if len(results) == 1 {
			v = results[0].Response()
		}
		if data, err = marshalJSON(v); err != nil {
			return err
		}
	} else {
		var buf bytes.Buffer
		for i, r := range results {
			printBill(&buf, names[i], r)
		}
		data = buf.Bytes()
	}
	return writeOutput(data, outputPath, log)
}

func allImages(docs []ocr.Document) bool {
	for _, d := range docs {
		if !d.IsImage() {
			return false
		}
	}
	return true
}
