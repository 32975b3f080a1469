// Package retry computes exponential backoff delays with jitter.
package retry

import (
	"math/rand"
	"time"
)

// DefaultJitterFraction is the upper bound of the random delay added on top
// of the capped exponential delay, as a fraction of that delay.
const DefaultJitterFraction = 0.2

// Policy describes an exponential backoff schedule.
type Policy struct {
	// BaseDelay is the delay before the first retry (attempt 0).
	BaseDelay time.Duration

	// MaxDelay caps the exponential delay before jitter is added.
	MaxDelay time.Duration

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64

	// Rand returns a value in [0, 1). Defaults to math/rand.Float64.
	Rand func() float64
}

// DefaultPolicy returns the backoff used for outbound email.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		JitterFraction: DefaultJitterFraction,
	}
}

// Backoff returns min(BaseDelay*2^attempt, MaxDelay) without jitter.
// attempt is zero-based: the wait after the first failure is Backoff(0).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
		// Doubling past this point would overflow time.Duration.
		if delay > time.Duration(1<<62) {
			break
		}
		delay *= 2
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Delay returns Backoff(attempt) plus a random jitter in
// [0, JitterFraction*Backoff(attempt)).
func (p Policy) Delay(attempt int) time.Duration {
	return addJitter(p.Backoff(attempt), p.JitterFraction, p.Rand)
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64, random func() float64) time.Duration {
	if jitterFraction <= 0 || duration <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	if random == nil {
		// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
		// Cryptographic randomness is not required for retry backoff jitter.
		random = rand.Float64
	}
	jitter := time.Duration(random() * float64(duration) * jitterFraction)
	return duration + jitter
}
