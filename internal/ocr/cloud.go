package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"splitroom/internal/logger"
	"splitroom/internal/resilience"
)

const (
	// MaxCloudBytes is the largest payload sent to the cloud analyzer in one call.
	MaxCloudBytes = 4 << 20

	// DefaultCloudConcurrency bounds page-by-page analysis.
	DefaultCloudConcurrency = 4
)

// Analyzer is a cloud document text service (Document AI or Vision).
type Analyzer interface {
	Name() string
	// Analyze returns the full text of data. pages scopes PDF analysis and
	// is ignored for images.
	Analyze(ctx context.Context, data []byte, mimeType string, pages []int32) (string, error)
}

// CloudStrategy sends documents to an Analyzer behind a circuit breaker.
// Oversize documents are rasterized or downscaled first.
type CloudStrategy struct {
	analyzer    Analyzer
	tools       *Tools
	breaker     *gobreaker.CircuitBreaker
	concurrency int
	log         zerolog.Logger
}

// NewCloudStrategy wires an analyzer; concurrency <= 0 uses the default.
func NewCloudStrategy(analyzer Analyzer, tools *Tools, concurrency int) *CloudStrategy {
	if concurrency <= 0 {
		concurrency = DefaultCloudConcurrency
	}
	return &CloudStrategy{
		analyzer:    analyzer,
		tools:       tools,
		breaker:     resilience.NewCircuitBreaker("cloud-ocr-" + analyzer.Name()),
		concurrency: concurrency,
		log:         logger.WithComponent("cloud-ocr"),
	}
}

func (c *CloudStrategy) Source() Source { return SourceCloud }

// Extract analyzes a PDF (clamped to doc.Pages) or a single image.
func (c *CloudStrategy) Extract(ctx context.Context, doc Document) (*Text, error) {
	const op = "CloudStrategy.Extract"

	switch {
	case doc.IsPDF():
		return c.extractPDF(ctx, doc)
	case doc.IsImage():
		data, mime, err := c.fitImage(ctx, doc.Data, doc.MimeType)
		if err != nil {
			return nil, WrapOCRError(op, err, "")
		}
		text, err := c.analyze(ctx, data, mime, nil)
		if err != nil {
			return nil, WrapOCRError(op, err, "")
		}
		return &Text{Content: strings.TrimSpace(text), Source: SourceCloud, Images: 1}, nil
	default:
		return nil, NewOCRError(op, ErrUnsupportedType, doc.MimeType)
	}
}

func (c *CloudStrategy) extractPDF(ctx context.Context, doc Document) (*Text, error) {
	const op = "CloudStrategy.extractPDF"

	maxPages, err := c.tools.PageCount(ctx, doc.Data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, WrapOCRError(op, err, "")
		}
		c.log.Warn().Err(err).Msg("page count unavailable, assuming 1")
		maxPages = 1
	}

	raw := doc.Pages
	if raw == "" {
		raw = DefaultPages
	}
	pages, ok := ClampPages(raw, maxPages)
	if !ok {
		pages = pageRange(1, maxPages)
	}

	if len(doc.Data) <= MaxCloudBytes {
		text, err := c.analyze(ctx, doc.Data, MimePDF, pages)
		if err != nil {
			return nil, WrapOCRError(op, err, "")
		}
		return &Text{Content: strings.TrimSpace(text), Source: SourceCloud, Pages: FormatPages(pages)}, nil
	}

	c.log.Info().
		Int("bytes", len(doc.Data)).
		Str("pages", FormatPages(pages)).
		Msg("PDF above cloud size limit, analyzing rendered pages")

	ints := make([]int, len(pages))
	for i, p := range pages {
		ints[i] = int(p)
	}
	images, err := c.tools.RenderPages(ctx, doc.Data, ints, RasterJPEG, CloudRenderDPI)
	if err != nil {
		return nil, WrapOCRError(op, err, "render failed")
	}
	rendered := make([]Document, len(images))
	for i, img := range images {
		rendered[i] = Document{Data: img, MimeType: MimeJPEG}
	}
	content, err := c.AnalyzePages(ctx, rendered, "PAGE")
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	return &Text{Content: content, Source: SourceCloud, Pages: FormatPages(pages)}, nil
}

// AnalyzeImages analyzes each image independently and merges the results
// with "----- IMAGE N -----" markers.
func (c *CloudStrategy) AnalyzeImages(ctx context.Context, docs []Document) (*Text, error) {
	const op = "CloudStrategy.AnalyzeImages"

	content, err := c.AnalyzePages(ctx, docs, "IMAGE")
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	return &Text{Content: content, Source: SourceCloud, Images: len(docs)}, nil
}

// AnalyzePages sends every image to the analyzer with bounded concurrency
// and merges the texts in input order. Images above MaxCloudBytes are
// downscaled to JPEG first. Any failed page fails the whole call.
func (c *CloudStrategy) AnalyzePages(ctx context.Context, images []Document, label string) (string, error) {
	const op = "AnalyzePages"

	parts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, img := range images {
		g.Go(func() error {
			data, mime, err := c.fitImage(gctx, img.Data, img.MimeType)
			if err != nil {
				return fmt.Errorf("%s %d: %w", strings.ToLower(label), i+1, err)
			}
			text, err := c.analyze(gctx, data, mime, nil)
			if err != nil {
				return fmt.Errorf("%s %d: %w", strings.ToLower(label), i+1, err)
			}
			parts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return "", NewOCRError(op, ctxErr, "")
		}
		return "", WrapOCRError(op, err, "")
	}
	return MergeSections(parts, label), nil
}

// fitImage keeps small images as-is and downscales the rest to JPEG.
func (c *CloudStrategy) fitImage(ctx context.Context, data []byte, mime string) ([]byte, string, error) {
	if len(data) <= MaxCloudBytes {
		return data, mime, nil
	}
	c.log.Info().Int("bytes", len(data)).Msg("image above cloud size limit, downscaling")
	small, err := c.tools.Downscale(ctx, data)
	if err != nil {
		return nil, "", err
	}
	return small, MimeJPEG, nil
}

func (c *CloudStrategy) analyze(ctx context.Context, data []byte, mime string, pages []int32) (string, error) {
	const op = "analyze"

	text, err := resilience.Execute(c.breaker, func() (string, error) {
		return c.analyzer.Analyze(ctx, data, mime, pages)
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return "", NewOCRError(op, ErrCloudUnavailable, "circuit breaker open")
		}
		if ctxErr := contextError(ctx); ctxErr != nil {
			return "", NewOCRError(op, ctxErr, "")
		}
		return "", err
	}
	return text, nil
}
