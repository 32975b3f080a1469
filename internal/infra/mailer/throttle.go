package mailer

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle paces outbound requests with a token bucket, so a burst of sends
// never exceeds the provider's request rate.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing requestsPerSecond with the given burst.
//
// Example:
//
//	throttle := NewThrottle(5, 1) // 5 req/s, no bursting
func NewThrottle(requestsPerSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or the context is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
