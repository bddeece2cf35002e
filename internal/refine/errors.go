package refine

import (
	"errors"
	"fmt"
)

var (
	ErrDisabled          = errors.New("refiner disabled: no API key configured")
	ErrMalformedResponse = errors.New("malformed refiner response")
	ErrEmptyResponse     = errors.New("refiner returned no choices")
	ErrUnavailable       = errors.New("refiner endpoint unavailable")
	ErrRequestFailed     = errors.New("refiner request failed")
	ErrRateLimited       = errors.New("refiner rate limit exceeded")
	ErrUnauthorized      = errors.New("refiner rejected the API key")
)

// RefineError carries the failing operation and an optional detail.
type RefineError struct {
	Op      string
	Err     error
	Details string
}

func (e *RefineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RefineError) Unwrap() error { return e.Err }

func (e *RefineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRefineError creates a RefineError.
func NewRefineError(op string, err error, details string) *RefineError {
	return &RefineError{Op: op, Err: err, Details: details}
}

// ParseError reports a model reply that is not a valid suggestion. It always
// matches ErrMalformedResponse.
type ParseError struct {
	// Content is the raw reply, truncated.
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedResponse, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }
