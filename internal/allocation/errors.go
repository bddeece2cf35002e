package allocation

import (
	"errors"
	"fmt"
)

var (
	ErrNoRoommates       = errors.New("at least one roommate is required")
	ErrInvalidPeriod     = errors.New("period start is after its end")
	ErrFixedExceedsTotal = errors.New("fixed part exceeds the expense total")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrInvalidAwayDate   = errors.New("away date is not a valid YYYY-MM-DD date")
)

// AllocationError reports a violated precondition.
type AllocationError struct {
	Op      string
	Err     error
	Details string
}

func (e *AllocationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

func (e *AllocationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newError(op string, err error, format string, args ...any) *AllocationError {
	return &AllocationError{Op: op, Err: err, Details: fmt.Sprintf(format, args...)}
}
