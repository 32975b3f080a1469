package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// AppIdentity is the caller classification a rate limit is scoped to.
//
// It is resolved once per request by an upstream step (for example an API key
// lookup) and is never mutated afterwards.
type AppIdentity struct {
	// ID identifies the calling application. Counters are keyed by it.
	ID string

	// RequestsPerMinute is the number of requests allowed per window.
	RequestsPerMinute int
}

// Validate reports whether the identity can be used for a limit check.
func (a *AppIdentity) Validate() error {
	if a == nil {
		return ErrIdentityMissing
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrIdentityMissing)
	}
	if a.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: requests per minute must be positive, got %d", ErrIdentityMissing, a.RequestsPerMinute)
	}
	return nil
}

// WindowCounter is the fixed-window state for one identity.
//
// Count is non-decreasing within a window and never negative. ResetAt is the
// instant the window ends; a request at or after ResetAt starts a new window.
type WindowCounter struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has ended at now.
// The boundary is inclusive: a request exactly at ResetAt sees an expired window.
func (c WindowCounter) Expired(now time.Time) bool {
	return !now.Before(c.ResetAt)
}
