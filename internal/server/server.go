// Package server exposes the bill pipeline and the cost split over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"splitroom/internal/bill"
	"splitroom/internal/logger"
	"splitroom/internal/observability"
)

const (
	DefaultMaxUploadMB    = 25
	DefaultRequestTimeout = 120 * time.Second
)

// Options bound uploads and processing time.
type Options struct {
	MaxUploadMB    int
	RequestTimeout time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	analyzer *bill.Analyzer
	metrics  *observability.Metrics
	opts     Options
	log      zerolog.Logger
}

// New creates a Server; metrics may be nil.
func New(analyzer *bill.Analyzer, metrics *observability.Metrics, opts Options) *Server {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = DefaultMaxUploadMB
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &Server{
		analyzer: analyzer,
		metrics:  metrics,
		opts:     opts,
		log:      logger.WithComponent("http"),
	}
}

// Router builds the chi router with every route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Instrument)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze-bill", s.analyzeBill)
		r.Post("/scan-bill", s.scanBill)
		r.Post("/ocr-bill", s.ocrBill)
		r.Post("/di-bill", s.cloudBill)
		r.Post("/split", s.split)
	})

	return r
}

// ListenAndServe serves until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.RequestTimeout + 10*time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
