package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the engine.
var (
	// ErrThrottleRetriesExhausted is returned when a target keeps being
	// throttled past the configured retry bound.
	ErrThrottleRetriesExhausted = errors.New("throttle retries exhausted")
)

// RunError reports which request a run failed at, for diagnosability. The
// last durable checkpoint is left intact, so a re-run resumes from it.
type RunError struct {
	// Target is the request target the run failed at.
	Target string

	// Request is the 1-based request number within the run.
	Request int

	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("run failed at request %d (%s): %v", e.Request, e.Target, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RunError) Unwrap() error {
	return e.Err
}
