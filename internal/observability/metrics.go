// Package observability holds the Prometheus metrics and the HTTP request
// logging middleware.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"splitroom/internal/ocr"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	// Registry owns these metrics; /metrics serves it.
	Registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	stageAttempts    *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	refinerCalls     *prometheus.CounterVec
	refinerDuration  prometheus.Histogram
	refinerOutcomes  *prometheus.CounterVec
	externalErrors   *prometheus.CounterVec
	billsAnalyzed    *prometheus.CounterVec
	allocationsTotal prometheus.Counter
}

// NewMetrics registers every metric in a private registry, so it can be
// called once per test.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitroom_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitroom_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"route"},
		),
		stageAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitroom_ocr_stage_attempts_total",
				Help: "Text acquisition attempts by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitroom_ocr_stage_duration_seconds",
				Help:    "Text acquisition duration by stage.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		refinerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitroom_refiner_calls_total",
				Help: "Refiner calls by outcome (ok, error, malformed).",
			},
			[]string{"outcome"},
		),
		refinerDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "splitroom_refiner_duration_seconds",
				Help:    "Refiner call duration.",
				Buckets: prometheus.DefBuckets,
			},
		),
		refinerOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitroom_refiner_guardrail_total",
				Help: "Refiner suggestions by guardrail result.",
			},
			[]string{"reason"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitroom_external_errors_total",
				Help: "Errors from external services.",
			},
			[]string{"service"},
		),
		billsAnalyzed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitroom_bills_analyzed_total",
				Help: "Analyzed bills by utility type and parser.",
			},
			[]string{"utility", "parser"},
		),
		allocationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "splitroom_allocations_total",
				Help: "Completed session allocations.",
			},
		),
	}
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(route, status string, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveAttempt is an ocr.Observer.
func (m *Metrics) ObserveAttempt(a ocr.Attempt) {
	stage := string(a.Source)
	m.stageAttempts.WithLabelValues(stage, attemptOutcome(a.Err)).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(a.Duration.Seconds())
	if a.Source == ocr.SourceCloud && a.Err != nil && !errors.Is(a.Err, ocr.ErrNoUsableText) {
		m.IncrExternalError("cloud-ocr")
	}
}

// ObserveRefiner is a refine.Observer.
func (m *Metrics) ObserveRefiner(outcome string, d time.Duration) {
	m.refinerCalls.WithLabelValues(outcome).Inc()
	m.refinerDuration.Observe(d.Seconds())
	if outcome == "error" {
		m.IncrExternalError("refiner")
	}
}

// RecordGuardrail counts how a suggestion was reconciled.
func (m *Metrics) RecordGuardrail(reason string) {
	m.refinerOutcomes.WithLabelValues(reason).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrBill counts an analyzed bill.
func (m *Metrics) IncrBill(utility, parser string) {
	m.billsAnalyzed.WithLabelValues(utility, parser).Inc()
}

// IncrAllocation counts a completed split.
func (m *Metrics) IncrAllocation() {
	m.allocationsTotal.Inc()
}

func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ocr.ErrNoUsableText):
		return "unusable"
	case errors.Is(err, ocr.ErrTimeout), errors.Is(err, ocr.ErrContextCanceled):
		return "timeout"
	default:
		return "error"
	}
}
