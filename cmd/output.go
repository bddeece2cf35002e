package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"splitroom/internal/bill"
	"splitroom/pkg/models"
)

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(data []byte, path string, log zerolog.Logger) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("output_file", path).Msg("failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", path).Int("bytes", len(data)).Msg("results written")
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON output: %w", err)
	}
	return append(data, '\n'), nil
}

// printBill writes the human-readable summary of one analyzed bill.
func printBill(w io.Writer, name string, r *bill.Result) {
	b, ev := r.Bill, r.Evidence

	fmt.Fprintf(w, "=== %s ===\n", name)
	fmt.Fprintf(w, "Utility:   %s (confidence %.2f)\n", b.UtilityType, b.UtilityConfidence)
	provider := b.Provider
	if provider == "" {
		provider = "unknown"
	}
	fmt.Fprintf(w, "Provider:  %s (parser %s)\n", provider, ev.Parser)
	fmt.Fprintf(w, "Period:    %s to %s\n", dateOrDash(b.PeriodStart), dateOrDash(b.PeriodEnd))
	if b.TotalAmount != nil {
		fmt.Fprintf(w, "Total:     %s €\n", b.TotalAmount)
	} else {
		fmt.Fprintln(w, "Total:     not found")
	}
	fmt.Fprintf(w, "Fixed:     %s €\n", b.FixedTotal)
	for _, it := range b.FixedItems {
		fmt.Fprintf(w, "  - %-30s %8s €\n", it.Label, it.Amount)
	}
	if b.TotalAmount != nil {
		fmt.Fprintf(w, "Variable:  %s €\n", *b.TotalAmount-b.FixedTotal)
	}

	source := []string{ev.OCRSource, fmt.Sprintf("%d chars", ev.TextLength)}
	if ev.Pages != "" {
		source = append(source, "pages "+ev.Pages)
	}
	if ev.Images > 0 {
		source = append(source, fmt.Sprintf("%d images", ev.Images))
	}
	fmt.Fprintf(w, "Text:      %s\n", strings.Join(source, ", "))

	switch {
	case ev.AIApplied:
		fmt.Fprintf(w, "AI:        applied (confidence %.2f)\n", ev.AIConfidence)
	case ev.AIReason != "":
		fmt.Fprintf(w, "AI:        not applied (%s)\n", ev.AIReason)
	}
	fmt.Fprintln(w)
}

func dateOrDash(d *civil.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

// responses collects JSON bodies in input order.
func responses(results []*bill.Result) []models.AnalysisResponse {
	out := make([]models.AnalysisResponse, len(results))
	for i, r := range results {
		out[i] = r.Response()
	}
	return out
}
