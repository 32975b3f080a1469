package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen matches every *CircuitOpenError.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrOperationTimeout matches every *OperationTimeoutError.
	ErrOperationTimeout = errors.New("operation timed out")
)

// CircuitOpenError is returned when a circuit refuses a call. No attempt is
// made for the refused call.
type CircuitOpenError struct {
	Service string

	// RetryAfter is the remaining recovery period, zero when a half-open
	// trial is already running.
	RetryAfter time.Duration

	// Cause is the error of the previous attempt when the circuit opened
	// between retries, nil otherwise.
	Cause error
}

func (e *CircuitOpenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("circuit %q open: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("circuit %q open", e.Service)
}

func (e *CircuitOpenError) Unwrap() error { return e.Cause }

func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// OperationTimeoutError reports an attempt that did not finish within
// Options.Timeout. Its late result, if any, is discarded.
type OperationTimeoutError struct {
	Service string
	Attempt int
	Timeout time.Duration
}

func (e *OperationTimeoutError) Error() string {
	return fmt.Sprintf("%s: attempt %d timed out after %s", e.Service, e.Attempt, e.Timeout)
}

func (e *OperationTimeoutError) Is(target error) bool {
	return target == ErrOperationTimeout || target == context.DeadlineExceeded
}

// IsCircuitOpen reports whether err is a circuit refusal.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsTimeout reports whether err is an attempt timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrOperationTimeout)
}
