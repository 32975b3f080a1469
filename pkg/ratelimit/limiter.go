package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter applies a fixed-window limit per AppIdentity.
//
// A Limiter owns no global state; every instance works against the store it
// was constructed with, so independent limiters never share counters.
type Limiter struct {
	store   WindowStore
	clock   Clock
	metrics Metrics
	window  time.Duration
}

// LimiterConfig holds the dependencies of a Limiter.
type LimiterConfig struct {
	// Store holds the window counters. Required.
	Store WindowStore

	// Window is the fixed window length.
	// Default: DefaultWindow (60s)
	Window time.Duration

	// Clock provides time operations for testing.
	// Default: SystemClock
	Clock Clock

	// Metrics records check outcomes.
	// Default: NoOpMetrics
	Metrics Metrics
}

// NewLimiter creates a Limiter. It panics if no store is given, since a
// limiter without state cannot enforce anything.
func NewLimiter(config LimiterConfig) *Limiter {
	if config.Store == nil {
		panic("ratelimit: NewLimiter requires a Store")
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpMetrics()
	}

	return &Limiter{
		store:   config.Store,
		clock:   config.Clock,
		metrics: config.Metrics,
		window:  config.Window,
	}
}

// Check counts one request for identity and decides whether it is allowed.
//
// The request is counted even when it is denied, so the window stays
// exhausted until ResetAt.
//
// Returns:
//   - ErrIdentityMissing (wrapped) when identity is nil or invalid
//   - a wrapped store error when the window could not be updated
//   - otherwise a Decision
func (l *Limiter) Check(ctx context.Context, identity *AppIdentity) (*Decision, error) {
	start := l.clock.Now()

	if err := identity.Validate(); err != nil {
		l.metrics.RecordError("identity_missing")
		return nil, err
	}

	now := l.clock.Now()
	counter, err := l.store.Increment(ctx, identity.ID, now, l.window)
	if err != nil {
		l.metrics.RecordError("store_error")
		return nil, fmt.Errorf("increment window for %s: %w", identity.ID, err)
	}

	l.metrics.RecordCheckDuration(l.clock.Now().Sub(start))

	if counter.Count > identity.RequestsPerMinute {
		return newDeniedDecision(identity.ID, identity.RequestsPerMinute, counter, now), nil
	}
	return newAllowedDecision(identity.ID, identity.RequestsPerMinute, counter), nil
}

// Enforce is Check expressed as an error: a denied decision is returned
// together with an *ExceededError.
func (l *Limiter) Enforce(ctx context.Context, identity *AppIdentity) (*Decision, error) {
	decision, err := l.Check(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return decision, &ExceededError{Decision: decision}
	}
	return decision, nil
}

// Status reports identity's current window without counting a request.
// An identity with no live window reports a full allowance.
func (l *Limiter) Status(ctx context.Context, identity *AppIdentity) (*Decision, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	counter, ok, err := l.store.Peek(ctx, identity.ID, now)
	if err != nil {
		return nil, fmt.Errorf("peek window for %s: %w", identity.ID, err)
	}
	if !ok {
		counter = WindowCounter{Count: 0, ResetAt: now.Add(l.window)}
	}

	if counter.Count >= identity.RequestsPerMinute {
		return newDeniedDecision(identity.ID, identity.RequestsPerMinute, counter, now), nil
	}
	return newAllowedDecision(identity.ID, identity.RequestsPerMinute, counter), nil
}

// Sweep removes expired windows from the store and updates the key gauge.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	removed, err := l.store.Sweep(ctx, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep windows: %w", err)
	}

	if count, err := l.store.KeyCount(ctx); err == nil {
		l.metrics.SetActiveKeys(count)
	}
	return removed, nil
}

// KeyCount returns the number of windows tracked by the store.
func (l *Limiter) KeyCount(ctx context.Context) (int, error) {
	return l.store.KeyCount(ctx)
}

// Window returns the fixed window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
