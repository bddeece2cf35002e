package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"splitroom/internal/bill"
	"splitroom/internal/classify"
	"splitroom/internal/extract"
	"splitroom/internal/observability"
	"splitroom/internal/ocr"
	"splitroom/internal/refine"
)

// pipeline is the wired analyzer plus whatever must be closed afterwards.
type pipeline struct {
	analyzer *bill.Analyzer
	closers  []func() error
}

func (p *pipeline) Close() {
	for _, c := range p.closers {
		c()
	}
}

// buildPipeline wires the cascade, classifier, extractors and, when
// configured, the cloud stage and the refiner. Missing credentials only
// switch their stage off. metrics may be nil.
func buildPipeline(ctx context.Context, metrics *observability.Metrics, log zerolog.Logger) (*pipeline, error) {
	cfg := appConfig
	p := &pipeline{}

	classifier := classify.Default()
	if cfg.DictionariesFile != "" {
		d, err := classify.LoadDictionaries(cfg.DictionariesFile)
		if err != nil {
			return nil, fmt.Errorf("load dictionaries: %w", err)
		}
		classifier = classify.New(d)
		log.Debug().Str("file", cfg.DictionariesFile).Msg("custom dictionaries loaded")
	}

	var observe ocr.Observer
	if metrics != nil {
		observe = metrics.ObserveAttempt
	}
	tools := ocr.NewTools(cfg.GetToolsConfig(), nil)

	var cloud *ocr.CloudStrategy
	if cfg.HasCloudCredentials() {
		analyzer, err := ocr.NewCloudAnalyzer(ctx, cfg.GetCloudConfig())
		if err != nil {
			log.Warn().Err(err).Msg("cloud analyzer unavailable, continuing without cloud stage")
		} else {
			cloud = ocr.NewCloudStrategy(analyzer, tools, cfg.CloudConcurrency)
			p.closers = append(p.closers, analyzer.Close)
			log.Debug().Str("backend", analyzer.Name()).Msg("cloud stage enabled")
		}
	}

	a := bill.NewAnalyzer(ocr.NewCascade(tools, cloud, observe), classifier, extract.DefaultRouter()).
		WithFullTextLogging(cfg.LogFullText)
	if metrics != nil {
		a.WithMetrics(metrics)
	}

	if cfg.HasAI() {
		r, err := refine.New(cfg.GetRefineConfig(), classifier.AllowedNIFs())
		if err != nil {
			return nil, fmt.Errorf("configure refiner: %w", err)
		}
		if metrics != nil {
			r.SetObserver(metrics.ObserveRefiner)
		}
		a.WithRefiner(r)
		log.Debug().Str("model", r.Model()).Msg("fixed-cost refiner enabled")
	}

	p.analyzer = a
	return p, nil
}

// commandContext bounds a command by timeout and cancels it on SIGINT or
// SIGTERM.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// handleAnalyzeError turns pipeline errors into messages for the terminal.
// The raw error is logged.
func handleAnalyzeError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("bill analysis failed")

	switch {
	case errors.Is(err, ocr.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return errors.New("reading the bill timed out. Try a larger --timeout or fewer --pages")
	case errors.Is(err, ocr.ErrContextCanceled), errors.Is(err, context.Canceled):
		return errors.New("analysis was canceled")
	case errors.Is(err, ocr.ErrTooManyFiles):
		return fmt.Errorf("too many images. Submit at most %d screenshots of one bill", ocr.MaxImages)
	case errors.Is(err, ocr.ErrUnsupportedType):
		return errors.New("unsupported file. Use a PDF or JPG/PNG/WEBP screenshots")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return errors.New("the file is empty")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return errors.New("invalid or corrupted PDF. Please check the file")
	case errors.Is(err, ocr.ErrNoUsableText):
		var ocrErr *ocr.OCRError
		if errors.As(err, &ocrErr) && ocrErr.Source != "" {
			return fmt.Errorf("no usable text could be read from the bill (last stage: %s, %d characters). "+
				"Try a sharper scan, or configure the cloud stage with GOOGLE_APPLICATION_CREDENTIALS", ocrErr.Source, ocrErr.TextLength)
		}
		return errors.New("no usable text could be read from the bill")
	case errors.Is(err, ocr.ErrToolFailed):
		return fmt.Errorf("a local text tool failed. Check that poppler-utils, ImageMagick and tesseract are installed: %w", err)
	case errors.Is(err, ocr.ErrMissingCredentials):
		return errors.New("the cloud stage is not configured. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS " +
			"plus GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID")
	case errors.Is(err, ocr.ErrPermissionDenied):
		return errors.New("permission denied by Google Cloud. Check the service account roles for Document AI / Vision")
	case errors.Is(err, ocr.ErrQuotaExceeded):
		return errors.New("Google Cloud quota exceeded. Check the project quotas in the console")
	case errors.Is(err, ocr.ErrProcessorNotFound):
		return errors.New("Document AI processor not found. Check DOCUMENT_AI_PROCESSOR_ID and GOOGLE_CLOUD_LOCATION")
	case errors.Is(err, ocr.ErrCloudUnavailable):
		return errors.New("cloud document analysis is unavailable right now. Try again later")
	default:
		return fmt.Errorf("bill analysis failed: %w", err)
	}
}
