package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"splitroom/internal/bill"
	"splitroom/internal/logger"
	"splitroom/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Read the text of a bill through the acquisition cascade",
	Long: `Acquire the text of a PDF or image bill and print it with the stage that
produced it. By default the stages run cheapest first (native text layer,
cloud analysis when configured, local tesseract OCR) until one returns
usable text; --stage forces a single stage.

Cloud stage environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID
  CLOUD_OCR_BACKEND - documentai (default) or vision`,
	Example: `  # Print the text of a bill
  splitroom ocr fatura.pdf

  # Force local OCR and include metadata
  splitroom ocr scan.pdf --stage local --metadata

  # Cloud analysis of pages 1-2 as JSON
  splitroom ocr fatura.pdf --stage cloud --pages 1-2 --json -o text.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput is the --json output.
type OCROutput struct {
	Text               string    `json:"text"`
	Source             string    `json:"source"`
	Usable             bool      `json:"usable"`
	Pages              string    `json:"pages,omitempty"`
	Images             int       `json:"images,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int       `json:"file_size"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().String("stage", "auto", "Stage to run: auto, native, cloud or local")
	ocrCmd.Flags().String("pages", "", "PDF pages for the cloud stage (e.g. 1-4)")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

var stageSources = map[string]ocr.Source{
	"native": ocr.SourceNative,
	"cloud":  ocr.SourceCloud,
	"local":  ocr.SourceLocal,
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	stage, _ := cmd.Flags().GetString("stage")
	pages, _ := cmd.Flags().GetString("pages")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if _, ok := stageSources[stage]; !ok && stage != "auto" {
		return fmt.Errorf("unknown stage %q: use auto, native, cloud or local", stage)
	}

	doc, err := bill.LoadDocument(args[0])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file not found: %s", args[0])
		}
		return err
	}
	doc.Pages = pages

	log.Info().
		Str("file", args[0]).
		Str("stage", stage).
		Str("mime_type", doc.MimeType).
		Int("size", len(doc.Data)).
		Msg("starting text acquisition")

	ctx, cancel := commandContext(time.Duration(timeoutSecs) * time.Second)
	defer cancel()

	p, err := buildPipeline(ctx, nil, log)
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	text, err := acquire(ctx, p.analyzer.Cascade(), doc, stage)
	if err != nil {
		return handleAnalyzeError(err, log)
	}
	duration := time.Since(start)

	log.Info().
		Str("source", string(text.Source)).
		Int("text_length", len(text.Content)).
		Dur("duration", duration).
		Msg("text acquisition completed")

	var data []byte
	if jsonOutput {
		data, err = marshalJSON(OCROutput{
			Text:               text.Content,
			Source:             string(text.Source),
			Usable:             ocr.IsUsable(text.Content),
			Pages:              text.Pages,
			Images:             text.Images,
			FileName:           filepath.Base(args[0]),
			FileSize:           len(doc.Data),
			ProcessedAt:        time.Now(),
			ProcessingDuration: duration.String(),
		})
		if err != nil {
			return err
		}
	} else {
		var buf bytes.Buffer
		if includeMetadata {
			fmt.Fprintf(&buf, "=== Text of %s ===\n", filepath.Base(args[0]))
			fmt.Fprintf(&buf, "File size: %d bytes\n", len(doc.Data))
			fmt.Fprintf(&buf, "Source: %s\n", text.Source)
			if text.Pages != "" {
				fmt.Fprintf(&buf, "Pages: %s\n", text.Pages)
			}
			fmt.Fprintf(&buf, "Usable: %t\n", ocr.IsUsable(text.Content))
			fmt.Fprintf(&buf, "Processing time: %v\n", duration)
			buf.WriteString("\n=== Extracted Text ===\n\n")
		}
		buf.WriteString(text.Content)
		buf.WriteString("\n")
		data = buf.Bytes()
	}
	return writeOutput(data, outputPath, log)
}

// acquire runs the whole cascade, or exactly one stage. A forced stage
// returns whatever it read, usable or not.
func acquire(ctx context.Context, cascade *ocr.Cascade, doc ocr.Document, stage string) (*ocr.Text, error) {
	if stage == "auto" {
		return cascade.Acquire(ctx, doc)
	}
	s := cascade.Stage(stageSources[stage])
	if s == nil {
		return nil, ocr.NewOCRError("acquire", ocr.ErrMissingCredentials, "cloud stage not configured")
	}
	return s.Extract(ctx, doc)
}
