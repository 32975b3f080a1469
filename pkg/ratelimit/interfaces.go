// Package ratelimit provides framework-agnostic fixed-window rate limiting.
//
// A Limiter counts requests per AppIdentity inside fixed windows held by a
// pluggable WindowStore. The package has no HTTP dependency; middleware in
// internal/handler/http translates decisions into status codes and headers.
package ratelimit

import (
	"context"
	"time"
)

// WindowStore holds one WindowCounter per key.
//
// Implementations can keep state in memory, Redis, or any backend that offers
// an atomic increment. All methods must be safe for concurrent use.
type WindowStore interface {
	// Increment atomically applies one request to the counter for key.
	//
	// If no counter exists, or now is at or after the counter's ResetAt, the
	// counter is reinitialized to Count=0 and ResetAt=now+window before the
	// increment. Lookup, reset and increment must happen as a single step.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - key: Identity key (AppIdentity.ID)
	//   - now: Time of the request
	//   - window: Fixed window length
	//
	// Returns the counter after the increment.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (WindowCounter, error)

	// Peek returns the counter for key without modifying it.
	// ok is false when no live window exists at now.
	Peek(ctx context.Context, key string, now time.Time) (counter WindowCounter, ok bool, err error)

	// Sweep removes counters whose window has ended at now and returns how
	// many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)

	// KeyCount returns the number of keys currently tracked.
	KeyCount(ctx context.Context) (int, error)
}

// Metrics records rate limiting outcomes.
type Metrics interface {
	// RecordAllowed records a request that passed the limit check.
	RecordAllowed(identity, path string)

	// RecordDenied records a request rejected because the window is exhausted.
	RecordDenied(identity, path string)

	// RecordError records a check that could not be completed.
	//
	// Parameters:
	//   - reason: "identity_missing" or "store_error"
	RecordError(reason string)

	// RecordCheckDuration records how long a single check took.
	RecordCheckDuration(duration time.Duration)

	// SetActiveKeys records the current number of tracked windows.
	SetActiveKeys(count int)

	// RecordEviction records keys dropped by LRU eviction or sweeping.
	RecordEviction(count int)
}

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
