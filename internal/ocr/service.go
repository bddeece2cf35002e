// Package ocr acquires text from utility bills through an ordered cascade of
// strategies, cheapest first:
//
//   - native-text: the PDF text layer, read with pdftotext
//   - cloud: Google Document AI (or Cloud Vision), only when credentials exist
//   - local-ocr: pdftoppm + ImageMagick + tesseract on the first pages
//
// Every strategy output must pass IsUsable, otherwise the next one runs.
// When nothing produces usable text the cascade returns an *OCRError
// wrapping ErrNoUsableText.
//
// Required tools on PATH (overridable through configuration):
//   - pdftotext, pdftoppm, pdfinfo (poppler-utils)
//   - magick (ImageMagick 7)
//   - tesseract with the por and eng language data
//
// Cloud stage environment variables:
//   - GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
//   - GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID
package ocr

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Source names the cascade stage that produced a text.
type Source string

const (
	SourceNative Source = "native-text"
	SourceCloud  Source = "cloud"
	SourceLocal  Source = "local-ocr"
	SourceNone   Source = "none"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWEBP = "image/webp"

	// MaxImages is the largest multi-image submission accepted.
	MaxImages = 12
)

// Document is one uploaded file.
type Document struct {
	Data     []byte
	MimeType string
	Name     string
	// Pages is the requested page range ("1-4", "all", "1,3"); empty means the default.
	Pages string
}

// IsPDF reports whether the document is a PDF, by content type or name.
func (d Document) IsPDF() bool {
	return d.MimeType == MimePDF || strings.HasSuffix(strings.ToLower(d.Name), ".pdf")
}

// IsImage reports whether the document is a raster image.
func (d Document) IsImage() bool {
	if strings.HasPrefix(d.MimeType, "image/") {
		return true
	}
	name := strings.ToLower(d.Name)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Text is acquired text plus where it came from.
type Text struct {
	Content string `json:"text"`
	Source  Source `json:"source"`
	Pages   string `json:"pages,omitempty"`
	Images  int    `json:"images,omitempty"`
}

// Strategy is one stage of the cascade.
type Strategy interface {
	Source() Source
	Extract(ctx context.Context, doc Document) (*Text, error)
}

// Attempt records the outcome of one strategy run.
type Attempt struct {
	Source     Source
	Err        error
	TextLength int
	Duration   time.Duration
}

// Observer is notified after each attempt; used for metrics.
type Observer func(a Attempt)

// FirstSuccess runs strategies in order and returns the first usable text.
// Errors and unusable output fall through to the next strategy. A context
// that expires stops the chain with ErrTimeout.
func FirstSuccess(ctx context.Context, strategies []Strategy, doc Document, observe Observer) (*Text, []Attempt, error) {
	const op = "FirstSuccess"

	var attempts []Attempt
	last := SourceNone
	bestLen := 0

	for _, s := range strategies {
		if err := contextError(ctx); err != nil {
			return nil, attempts, &OCRError{Op: op, Err: err, Source: last, TextLength: bestLen}
		}

		start := time.Now()
		text, err := s.Extract(ctx, doc)
		a := Attempt{Source: s.Source(), Err: err, Duration: time.Since(start)}
		if text != nil {
			a.TextLength = len(text.Content)
			if a.TextLength > bestLen {
				bestLen = a.TextLength
			}
		}
		if err == nil && (text == nil || !IsUsable(text.Content)) {
			a.Err = ErrNoUsableText
		}
		attempts = append(attempts, a)
		last = s.Source()
		if observe != nil {
			observe(a)
		}

		if a.Err == nil {
			return text, attempts, nil
		}
	}

	if err := contextError(ctx); err != nil {
		return nil, attempts, &OCRError{Op: op, Err: err, Source: last, TextLength: bestLen}
	}
	return nil, attempts, &OCRError{Op: op, Err: ErrNoUsableText, Source: last, TextLength: bestLen}
}

// contextError maps context failures to the package sentinels.
func contextError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTimeout, err)
	default:
		return errors.Join(ErrContextCanceled, err)
	}
}
