package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"splitroom/internal/logger"
)

// Cascade holds the configured stages. The cloud stage is nil when no
// credentials are configured.
type Cascade struct {
	native  *NativeText
	cloud   *CloudStrategy
	local   *LocalOCR
	observe Observer
	log     zerolog.Logger
}

// NewCascade builds the cascade; cloud may be nil.
func NewCascade(tools *Tools, cloud *CloudStrategy, observe Observer) *Cascade {
	return &Cascade{
		native:  NewNativeText(tools),
		cloud:   cloud,
		local:   NewLocalOCR(tools),
		observe: observe,
		log:     logger.WithComponent("cascade"),
	}
}

// HasCloud reports whether the cloud stage is registered.
func (c *Cascade) HasCloud() bool { return c.cloud != nil }

// Strategies returns the stages that apply to doc, cheapest first.
func (c *Cascade) Strategies(doc Document) []Strategy {
	var out []Strategy
	if doc.IsPDF() {
		out = append(out, c.native)
	}
	if c.cloud != nil {
		out = append(out, c.cloud)
	}
	return append(out, c.local)
}

// Stage returns the single strategy for source, or nil when unavailable.
func (c *Cascade) Stage(source Source) Strategy {
	switch source {
	case SourceNative:
		return c.native
	case SourceCloud:
		if c.cloud == nil {
			return nil
		}
		return c.cloud
	case SourceLocal:
		return c.local
	}
	return nil
}

// Acquire runs the cascade on one PDF or image.
func (c *Cascade) Acquire(ctx context.Context, doc Document) (*Text, error) {
	const op = "Acquire"

	if len(doc.Data) == 0 {
		return nil, NewOCRError(op, ErrEmptyDocument, doc.Name)
	}
	if !doc.IsPDF() && !doc.IsImage() {
		return nil, NewOCRError(op, ErrUnsupportedType, doc.MimeType)
	}

	text, attempts, err := FirstSuccess(ctx, c.Strategies(doc), doc, c.observe)
	c.logAttempts(doc.Name, attempts)
	if err != nil {
		return nil, err
	}
	return text, nil
}

// AcquireImages reads 1 to MaxImages screenshots of one bill and merges
// them in order. The cloud stage is used when available, local OCR
// otherwise or when the cloud call fails or returns unusable text.
func (c *Cascade) AcquireImages(ctx context.Context, docs []Document) (*Text, error) {
	const op = "AcquireImages"

	if len(docs) == 0 {
		return nil, NewOCRError(op, ErrUnsupportedType, "no images")
	}
	if len(docs) > MaxImages {
		return nil, NewOCRError(op, ErrTooManyFiles, fmt.Sprintf("%d images, max %d", len(docs), MaxImages))
	}
	for _, d := range docs {
		if !d.IsImage() {
			return nil, NewOCRError(op, ErrUnsupportedType, d.MimeType)
		}
	}

	var (
		text *Text
		err  error
	)
	if c.cloud != nil {
		text, err = c.timed(SourceCloud, func() (*Text, error) { return c.cloud.AnalyzeImages(ctx, docs) })
		if err != nil {
			if ctxErr := contextError(ctx); ctxErr != nil {
				return nil, NewOCRError(op, ctxErr, "")
			}
			c.log.Warn().Err(err).Int("images", len(docs)).Msg("cloud image analysis failed, using local OCR")
			text = nil
		} else if !IsUsable(text.Content) {
			c.log.Info().Int("images", len(docs)).Int("text_length", len(text.Content)).
				Msg("cloud image text not usable, using local OCR")
			text = nil
		}
	}
	if text == nil {
		images := make([][]byte, len(docs))
		for i, d := range docs {
			images[i] = d.Data
		}
		text, err = c.timed(SourceLocal, func() (*Text, error) { return c.local.RecognizeImages(ctx, images) })
		if err != nil {
			if ctxErr := contextError(ctx); ctxErr != nil {
				return nil, NewOCRError(op, ctxErr, "")
			}
			return nil, &OCRError{Op: op, Err: ErrNoUsableText, Details: err.Error(), Source: SourceLocal}
		}
	}

	if !IsUsable(text.Content) {
		return nil, &OCRError{Op: op, Err: ErrNoUsableText, Source: text.Source, TextLength: len(text.Content)}
	}
	return text, nil
}

func (c *Cascade) timed(source Source, fn func() (*Text, error)) (*Text, error) {
	start := time.Now()
	text, err := fn()
	a := Attempt{Source: source, Err: err, Duration: time.Since(start)}
	if text != nil {
		a.TextLength = len(text.Content)
		if err == nil && !IsUsable(text.Content) {
			a.Err = ErrNoUsableText
		}
	}
	if c.observe != nil {
		c.observe(a)
	}
	return text, err
}

func (c *Cascade) logAttempts(name string, attempts []Attempt) {
	for _, a := range attempts {
		ev := c.log.Debug()
		if a.Err != nil {
			ev = c.log.Info().Err(a.Err)
		}
		ev.Str("file", name).
			Str("source", string(a.Source)).
			Int("text_length", a.TextLength).
			Int64("duration_ms", a.Duration.Milliseconds()).
			Msg("text acquisition attempt")
	}
}
