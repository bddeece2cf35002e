// Package bill runs the analysis pipeline: text acquisition, utility and
// provider classification, field extraction and the optional fixed-cost
// refiner.
package bill

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitroom/internal/classify"
	"splitroom/internal/extract"
	"splitroom/internal/logger"
	"splitroom/internal/observability"
	"splitroom/internal/ocr"
	"splitroom/internal/refine"
	"splitroom/pkg/models"
)

// Refiner suggests fixed-cost items for a bill text.
type Refiner interface {
	Suggest(ctx context.Context, text string, utility models.UtilityType) (*refine.Suggestion, error)
}

// Options tune one analysis.
type Options struct {
	// NoAI skips the refiner even when one is configured.
	NoAI bool
}

// Result is an analyzed bill with the text it came from.
type Result struct {
	Bill     models.ExtractedBill
	Evidence models.Evidence
	Text     string
}

// Response wraps the result in the HTTP success body.
func (r *Result) Response() models.AnalysisResponse {
	return models.AnalysisResponse{OK: true, Extracted: &r.Bill, Evidence: r.Evidence}
}

// Analyzer wires the pipeline stages together.
type Analyzer struct {
	cascade     *ocr.Cascade
	classifier  *classify.Classifier
	router      *extract.Router
	refiner     Refiner
	metrics     *observability.Metrics
	logFullText bool
	log         zerolog.Logger
}

// NewAnalyzer creates an Analyzer without refiner or metrics.
func NewAnalyzer(cascade *ocr.Cascade, classifier *classify.Classifier, router *extract.Router) *Analyzer {
	return &Analyzer{
		cascade:    cascade,
		classifier: classifier,
		router:     router,
		log:        logger.WithComponent("bill"),
	}
}

// WithRefiner enables the fixed-cost refiner.
func (a *Analyzer) WithRefiner(r Refiner) *Analyzer {
	a.refiner = r
	return a
}

// WithMetrics records pipeline metrics.
func (a *Analyzer) WithMetrics(m *observability.Metrics) *Analyzer {
	a.metrics = m
	return a
}

// WithFullTextLogging logs the whole acquired text. Bills carry personal
// data, so this is for local debugging only.
func (a *Analyzer) WithFullTextLogging(on bool) *Analyzer {
	a.logFullText = on
	return a
}

// HasRefiner reports whether AI refinement is configured.
func (a *Analyzer) HasRefiner() bool { return a.refiner != nil }

// Cascade exposes the text acquisition stages.
func (a *Analyzer) Cascade() *ocr.Cascade { return a.cascade }

// Analyze runs the full pipeline on one PDF or image.
func (a *Analyzer) Analyze(ctx context.Context, doc ocr.Document, opts Options) (*Result, error) {
	text, err := a.cascade.Acquire(ctx, doc)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeText(ctx, text, opts), nil
}

// AnalyzeImages runs the pipeline on 1 to ocr.MaxImages screenshots of one
// bill.
func (a *Analyzer) AnalyzeImages(ctx context.Context, docs []ocr.Document, opts Options) (*Result, error) {
	text, err := a.cascade.AcquireImages(ctx, docs)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeText(ctx, text, opts), nil
}

// AnalyzeText classifies, extracts and refines already acquired text. It
// never fails: a refiner error leaves the extracted bill as it is.
func (a *Analyzer) AnalyzeText(ctx context.Context, text *ocr.Text, opts Options) *Result {
	id := uuid.NewString()
	log := a.log.With().Str("analysis_id", id).Logger()

	utility := a.classifier.Utility(text.Content)
	provider := a.classifier.Provider(text.Content)
	bill, parser := a.router.Extract(text.Content, provider)
	bill.UtilityType = utility.Type
	bill.UtilityConfidence = utility.Confidence

	ev := models.Evidence{
		AnalysisID: id,
		OCRSource:  string(text.Source),
		TextLength: len(text.Content),
		Pages:      text.Pages,
		Images:     text.Images,
		Provider:   provider,
		Parser:     parser,
		Scores:     utility.Scores,
	}

	if a.logFullText {
		log.Info().Str("text", text.Content).Msg("acquired bill text")
	}

	if a.refiner != nil && !opts.NoAI {
		a.refine(ctx, log, text.Content, &bill, &ev)
	}

	if a.metrics != nil {
		a.metrics.IncrBill(string(bill.UtilityType), parser)
	}

	ev2 := log.Info().
		Str("source", ev.OCRSource).
		Str("provider", provider).
		Str("parser", parser).
		Str("utility", string(bill.UtilityType)).
		Float64("utility_confidence", bill.UtilityConfidence).
		Int("fixed_items", len(bill.FixedItems)).
		Bool("ai_applied", ev.AIApplied)
	if bill.TotalAmount != nil {
		ev2 = ev2.Str("total", bill.TotalAmount.String())
	}
	ev2.Msg("bill analyzed")

	return &Result{Bill: bill, Evidence: ev, Text: text.Content}
}

func (a *Analyzer) refine(ctx context.Context, log zerolog.Logger, text string, bill *models.ExtractedBill, ev *models.Evidence) {
	s, err := a.refiner.Suggest(ctx, text, bill.UtilityType)
	if err != nil {
		ev.AIReason = refineFailure(err)
		refine.ClearFixed(bill)
		log.Warn().Err(err).Msg("fixed-cost refiner failed, leaving fixed items empty")
		return
	}

	out := refine.Apply(bill, s)
	ev.AIApplied = out.Applied
	ev.AIConfidence = out.Confidence
	ev.AIReason = out.Reason
	if a.metrics != nil {
		a.metrics.RecordGuardrail(out.Reason)
	}
	if !out.Applied {
		log.Info().
			Str("reason", out.Reason).
			Float64("confidence", out.Confidence).
			Str("candidate", out.Candidate.String()).
			Msg("refiner suggestion not applied")
	}
}

func refineFailure(err error) string {
	switch {
	case errors.Is(err, refine.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, refine.ErrUnavailable), errors.Is(err, refine.ErrRateLimited):
		return "unavailable"
	default:
		return "error"
	}
}
