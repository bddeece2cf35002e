package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"splitroom/internal/ocr"
)

func TestObserveAttempt(t *testing.T) {
	m := NewMetrics()

	m.ObserveAttempt(ocr.Attempt{Source: ocr.SourceNative, Err: ocr.ErrNoUsableText, Duration: time.Millisecond})
	m.ObserveAttempt(ocr.Attempt{Source: ocr.SourceCloud, Err: errors.New("quota"), Duration: time.Second})
	m.ObserveAttempt(ocr.Attempt{Source: ocr.SourceLocal, TextLength: 900, Duration: 2 * time.Second})

	checks := []struct {
		stage, outcome string
	}{
		{"native-text", "unusable"},
		{"cloud", "error"},
		{"local-ocr", "ok"},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(m.stageAttempts.WithLabelValues(c.stage, c.outcome)); got != 1 {
			t.Errorf("%s/%s = %v, want 1", c.stage, c.outcome, got)
		}
	}
	if got := testutil.ToFloat64(m.externalErrors.WithLabelValues("cloud-ocr")); got != 1 {
		t.Errorf("cloud external errors = %v, want 1", got)
	}
}

func TestObserveRefiner(t *testing.T) {
	m := NewMetrics()
	m.ObserveRefiner("ok", time.Second)
	m.ObserveRefiner("error", time.Second)
	m.RecordGuardrail("exceeds_total")

	if got := testutil.ToFloat64(m.refinerCalls.WithLabelValues("error")); got != 1 {
		t.Errorf("refiner errors = %v", got)
	}
	if got := testutil.ToFloat64(m.externalErrors.WithLabelValues("refiner")); got != 1 {
		t.Errorf("external refiner errors = %v", got)
	}
	if got := testutil.ToFloat64(m.refinerOutcomes.WithLabelValues("exceeds_total")); got != 1 {
		t.Errorf("guardrail = %v", got)
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/items/{id}", "418")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}
