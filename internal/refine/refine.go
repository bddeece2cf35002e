// Package refine asks an OpenAI-compatible chat endpoint to pick the fixed
// cost items out of redacted bill text, and reconciles the answer with the
// extracted total.
package refine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"splitroom/internal/logger"
	"splitroom/internal/resilience"
	"splitroom/pkg/models"
)

const (
	DefaultBaseURL    = "https://api.deepseek.com/v1"
	DefaultModel      = "deepseek-chat"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 1
)

// Config configures the chat endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Observer is told the outcome ("ok", "error", "malformed") and duration
// of every Suggest call.
type Observer func(outcome string, elapsed time.Duration)

// Refiner sends redacted bill text to the chat endpoint.
type Refiner struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	retry    resilience.RetryConfig
	redactor *Redactor
	breaker  *gobreaker.CircuitBreaker
	observe  Observer
	log      zerolog.Logger
}

// New creates a Refiner. It returns ErrDisabled when no API key is set.
func New(cfg Config, allowedNIFs []string) (*Refiner, error) {
	const op = "refine.New"

	if cfg.APIKey == "" {
		return nil, NewRefineError(op, ErrDisabled, "")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Refiner{
		client:   openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		retry:    resilience.RetryConfig{MaxRetries: cfg.MaxRetries, InitialBackoff: 500 * time.Millisecond},
		redactor: NewRedactor(allowedNIFs),
		breaker:  resilience.NewCircuitBreaker("refiner"),
		log:      logger.WithComponent("refiner"),
	}, nil
}

// SetObserver installs a callback for metrics.
func (r *Refiner) SetObserver(o Observer) { r.observe = o }

// Model returns the configured model name.
func (r *Refiner) Model() string { return r.model }

// Suggest redacts text, sends the prompt for the utility and parses the
// reply. The raw text never leaves the process.
func (r *Refiner) Suggest(ctx context.Context, text string, utility models.UtilityType) (*Suggestion, error) {
	const op = "Refiner.Suggest"
	start := time.Now()

	name := PromptFor(utility)
	prompt, err := RenderPrompt(name, r.redactor.Redact(text))
	if err != nil {
		return nil, NewRefineError(op, err, "")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.Debug().
		Str("prompt", name).
		Str("model", r.model).
		Int("prompt_chars", len(prompt)).
		Msg("requesting fixed-cost suggestion")

	var content string
	err = resilience.Retry(ctx, r.retry, isTransient, func() error {
		var callErr error
		content, callErr = resilience.Execute(r.breaker, func() (string, error) {
			return r.complete(ctx, prompt)
		})
		return callErr
	})
	if err != nil {
		r.done("error", start)
		return nil, handleAPIError(op, err)
	}

	s, err := ParseSuggestion(content)
	if err != nil {
		r.done("malformed", start)
		r.log.Warn().Err(err).Str("reply", clip(content)).Msg("unusable refiner reply")
		return nil, err
	}

	r.done("ok", start)
	r.log.Info().
		Str("prompt", name).
		Int("items", len(s.FixedItems)).
		Float64("confidence", s.Confidence).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("fixed-cost suggestion received")
	return s, nil
}

func (r *Refiner) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (r *Refiner) done(outcome string, start time.Time) {
	if r.observe != nil {
		r.observe(outcome, time.Since(start))
	}
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// isTransient retries rate limits and server errors only.
func isTransient(err error) bool {
	if resilience.IsOpen(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := statusOf(err)
	return status == http.StatusTooManyRequests || status >= 500
}

func handleAPIError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewRefineError(op, err, "")
	case resilience.IsOpen(err):
		return NewRefineError(op, ErrUnavailable, "circuit breaker open")
	case errors.Is(err, ErrEmptyResponse):
		return NewRefineError(op, ErrEmptyResponse, "")
	}

	switch status := statusOf(err); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewRefineError(op, ErrUnauthorized, err.Error())
	case status == http.StatusTooManyRequests:
		return NewRefineError(op, ErrRateLimited, err.Error())
	case status >= 500:
		return NewRefineError(op, ErrUnavailable, err.Error())
	default:
		return NewRefineError(op, ErrRequestFailed, err.Error())
	}
}
