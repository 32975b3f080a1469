package windowstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"teamhub/internal/resilience/circuitbreaker"
	"teamhub/pkg/ratelimit"
)

// FallbackStore serves windows from a primary store guarded by a circuit
// breaker and switches to an in-process store while the primary fails.
//
// Counts are not merged across the switch: during an outage each instance
// limits on its own.
type FallbackStore struct {
	primary  ratelimit.WindowStore
	fallback ratelimit.WindowStore
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewFallbackStore creates a FallbackStore. A nil breaker uses
// circuitbreaker.RedisConfig().
func NewFallbackStore(primary, fallback ratelimit.WindowStore, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *FallbackStore {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.RedisConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
	}
}

// Backend names the store currently serving requests.
func (s *FallbackStore) Backend() string {
	if s.breaker.State() == gobreaker.StateOpen {
		return "memory-fallback"
	}
	return string(ratelimit.BackendRedis)
}

// BreakerState returns the guarding breaker's state.
func (s *FallbackStore) BreakerState() string {
	return s.breaker.State().String()
}

func (s *FallbackStore) degrade(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, "window store degraded to memory",
		slog.String("op", op),
		slog.String("breaker", s.breaker.State().String()),
		slog.Any("error", err))
}

// Increment implements ratelimit.WindowStore.
func (s *FallbackStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (ratelimit.WindowCounter, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Increment(ctx, key, now, window)
	})
	if err == nil {
		return res.(ratelimit.WindowCounter), nil
	}
	if isContextErr(err) {
		return ratelimit.WindowCounter{}, err
	}

	s.degrade(ctx, "increment", err)
	return s.fallback.Increment(ctx, key, now, window)
}

// Peek implements ratelimit.WindowStore.
func (s *FallbackStore) Peek(ctx context.Context, key string, now time.Time) (ratelimit.WindowCounter, bool, error) {
	type peekResult struct {
		counter ratelimit.WindowCounter
		ok      bool
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		counter, ok, err := s.primary.Peek(ctx, key, now)
		return peekResult{counter, ok}, err
	})
	if err == nil {
		r := res.(peekResult)
		return r.counter, r.ok, nil
	}
	if isContextErr(err) {
		return ratelimit.WindowCounter{}, false, err
	}

	s.degrade(ctx, "peek", err)
	return s.fallback.Peek(ctx, key, now)
}

// Sweep implements ratelimit.WindowStore. The fallback is always swept; the
// primary only while the breaker admits calls.
func (s *FallbackStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.fallback.Sweep(ctx, now)
	if err != nil {
		return removed, err
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Sweep(ctx, now)
	})
	if err != nil {
		if isContextErr(err) {
			return removed, err
		}
		s.degrade(ctx, "sweep", err)
		return removed, nil
	}
	return removed + res.(int), nil
}

// KeyCount implements ratelimit.WindowStore.
func (s *FallbackStore) KeyCount(ctx context.Context) (int, error) {
	local, err := s.fallback.KeyCount(ctx)
	if err != nil {
		return 0, err
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.KeyCount(ctx)
	})
	if err != nil {
		if isContextErr(err) {
			return 0, err
		}
		return local, nil
	}
	return local + res.(int), nil
}

var _ ratelimit.WindowStore = (*FallbackStore)(nil)
