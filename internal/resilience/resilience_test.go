package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

var errTransient = errors.New("transient")

func TestRetry(t *testing.T) {
	permanent := errors.New("permanent")
	retryable := func(err error) bool { return errors.Is(err, errTransient) }

	tests := []struct {
		name      string
		failures  []error
		retries   int
		wantCalls int
		wantErr   error
	}{
		{"first try", nil, 2, 1, nil},
		{"recovers", []error{errTransient, errTransient}, 2, 3, nil},
		{"gives up", []error{errTransient, errTransient, errTransient}, 2, 3, errTransient},
		{"permanent stops", []error{permanent}, 2, 1, permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), RetryConfig{MaxRetries: tt.retries, InitialBackoff: time.Millisecond}, retryable, func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := Retry(ctx, RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour}, nil, func() error {
		calls++
		cancel()
		return errTransient
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err = %v calls = %d", err, calls)
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	cb := NewCircuitBreaker("test")
	for range 5 {
		Execute(cb, func() (int, error) { return 0, errTransient })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	_, err := Execute(cb, func() (int, error) { return 1, nil })
	if !IsOpen(err) {
		t.Errorf("err = %v, want open breaker", err)
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("cancel")
	for range 10 {
		Execute(cb, func() (int, error) { return 0, context.Canceled })
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}

func TestExecuteReturnsValue(t *testing.T) {
	got, err := Execute(NewCircuitBreaker("value"), func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("got %q, %v", got, err)
	}
}
