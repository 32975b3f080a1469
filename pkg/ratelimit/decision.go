package ratelimit

import (
	"fmt"
	"time"
)

// Decision represents the result of a rate limit check.
type Decision struct {
	// Key is the identity the decision applies to.
	Key string

	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the number of requests allowed per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	// It is 0 once the limit is reached and never negative.
	Remaining int

	// ResetAt is the time the current window ends.
	ResetAt time.Time

	// RetryAfter is ResetAt minus the check time for denied requests, and
	// zero for allowed ones.
	RetryAfter time.Duration
}

// String returns a human-readable representation of the decision.
func (d *Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Key: %s, Remaining: %d/%d, ResetAt: %s}",
			d.Key, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("Decision{Allowed: false, Key: %s, Limit: %d, RetryAfter: %s, ResetAt: %s}",
		d.Key, d.Limit, d.RetryAfter, d.ResetAt.Format(time.RFC3339))
}

// ResetAtUnix returns the reset time as a Unix timestamp, for X-RateLimit-Reset.
func (d *Decision) ResetAtUnix() int64 {
	return d.ResetAt.Unix()
}

// RetryAfterSeconds returns the whole seconds a denied caller should wait,
// rounded up, for the Retry-After header. A denied decision always reports at
// least one second; allowed decisions report zero.
func (d *Decision) RetryAfterSeconds() int64 {
	if d.Allowed {
		return 0
	}
	if d.RetryAfter <= 0 {
		return 1
	}
	seconds := int64(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		seconds++
	}
	return seconds
}

// newAllowedDecision builds the decision for a request within the limit.
func newAllowedDecision(key string, limit int, counter WindowCounter) *Decision {
	remaining := limit - counter.Count
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Key:       key,
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   counter.ResetAt,
	}
}

// newDeniedDecision builds the decision for a request over the limit.
func newDeniedDecision(key string, limit int, counter WindowCounter, now time.Time) *Decision {
	retryAfter := counter.ResetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Decision{
		Key:        key,
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    counter.ResetAt,
		RetryAfter: retryAfter,
	}
}
