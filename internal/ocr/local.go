package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"splitroom/internal/logger"
)

// LocalPages is how many leading PDF pages local OCR reads.
const LocalPages = 2

// LocalOCR renders the first pages (or takes the image as-is), normalizes
// them and runs tesseract. Slowest stage, but works without network.
type LocalOCR struct {
	tools *Tools
	log   zerolog.Logger
}

func NewLocalOCR(tools *Tools) *LocalOCR {
	return &LocalOCR{tools: tools, log: logger.WithComponent("local-ocr")}
}

func (l *LocalOCR) Source() Source { return SourceLocal }

func (l *LocalOCR) Extract(ctx context.Context, doc Document) (*Text, error) {
	const op = "LocalOCR.Extract"

	switch {
	case doc.IsPDF():
		count, err := l.tools.PageCount(ctx, doc.Data)
		if err != nil {
			l.log.Warn().Err(err).Msg("pdfinfo failed, assuming a single page")
			count = 1
		}
		n := min(max(count, 1), LocalPages)
		pages := make([]int, n)
		for i := range pages {
			pages[i] = i + 1
		}
		images, err := l.tools.RenderPages(ctx, doc.Data, pages, RasterPNG, LocalRenderDPI)
		if err != nil {
			return nil, WrapOCRError(op, err, "render failed")
		}
		content, err := l.recognizeAll(ctx, images, "PAGE")
		if err != nil {
			return nil, WrapOCRError(op, err, "")
		}
		return &Text{Content: content, Source: SourceLocal, Pages: FormatPages(toInt32(pages))}, nil

	case doc.IsImage():
		content, err := l.Recognize(ctx, doc.Data)
		if err != nil {
			return nil, WrapOCRError(op, err, "")
		}
		return &Text{Content: strings.TrimSpace(content), Source: SourceLocal, Images: 1}, nil

	default:
		return nil, NewOCRError(op, ErrUnsupportedType, doc.MimeType)
	}
}

// Recognize prepares one image and runs tesseract on it. A failed
// preparation falls back to the raw image.
func (l *LocalOCR) Recognize(ctx context.Context, img []byte) (string, error) {
	prepped, err := l.tools.PrepareForOCR(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		l.log.Warn().Err(err).Msg("image normalization failed, using raw image")
		prepped = img
	}
	return l.tools.Tesseract(ctx, prepped)
}

// RecognizeImages runs local OCR on every image and merges the results
// with "----- IMAGE N -----" markers.
func (l *LocalOCR) RecognizeImages(ctx context.Context, images [][]byte) (*Text, error) {
	const op = "LocalOCR.RecognizeImages"

	content, err := l.recognizeAll(ctx, images, "IMAGE")
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	return &Text{Content: content, Source: SourceLocal, Images: len(images)}, nil
}

func (l *LocalOCR) recognizeAll(ctx context.Context, images [][]byte, label string) (string, error) {
	parts := make([]string, len(images))
	for i, img := range images {
		text, err := l.Recognize(ctx, img)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	return MergeSections(parts, label), nil
}

// MergeSections joins per-page texts in index order, each preceded by a
// "----- LABEL N -----" marker.
func MergeSections(parts []string, label string) string {
	var b strings.Builder
	for i, p := range parts {
		fmt.Fprintf(&b, "\n\n----- %s %d -----\n\n%s", label, i+1, strings.TrimSpace(p))
	}
	return strings.TrimSpace(b.String())
}

func toInt32(pages []int) []int32 {
	out := make([]int32, len(pages))
	for i, p := range pages {
		out[i] = int32(p)
	}
	return out
}
