package config

import (
	"log/slog"
	"time"
)

// ResilienceConfig holds retry and circuit breaker settings for outbound calls.
type ResilienceConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the backoff delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff before jitter.
	MaxDelay time.Duration

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// FailureThreshold is the consecutive failure count that opens a circuit.
	FailureThreshold int

	// RecoveryPeriod is how long an open circuit refuses calls.
	RecoveryPeriod time.Duration
}

// DefaultResilienceConfig returns the defaults used for email dispatch.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		MaxRetries:       3,
		BaseDelay:        100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		RecoveryPeriod:   60 * time.Second,
	}
}

// LoadResilienceConfig loads resilience settings from environment variables.
//
// Environment variables:
//   - EMAIL_MAX_RETRIES (default: 3)
//   - EMAIL_BASE_DELAY (default: 100ms)
//   - EMAIL_MAX_DELAY (default: 5s)
//   - EMAIL_TIMEOUT (default: 10s)
//   - CIRCUIT_FAILURE_THRESHOLD (default: 5)
//   - CIRCUIT_RECOVERY_PERIOD (default: 60s)
//
// A MaxDelay below BaseDelay is raised to BaseDelay.
func LoadResilienceConfig() ResilienceConfig {
	defaults := DefaultResilienceConfig()

	config := ResilienceConfig{
		MaxRetries:       nonNegativeInt("EMAIL_MAX_RETRIES", defaults.MaxRetries),
		BaseDelay:        positiveDuration("EMAIL_BASE_DELAY", defaults.BaseDelay),
		MaxDelay:         positiveDuration("EMAIL_MAX_DELAY", defaults.MaxDelay),
		Timeout:          positiveDuration("EMAIL_TIMEOUT", defaults.Timeout),
		FailureThreshold: positiveInt("CIRCUIT_FAILURE_THRESHOLD", defaults.FailureThreshold),
		RecoveryPeriod:   positiveDuration("CIRCUIT_RECOVERY_PERIOD", defaults.RecoveryPeriod),
	}

	if config.MaxDelay < config.BaseDelay {
		slog.Warn("EMAIL_MAX_DELAY below EMAIL_BASE_DELAY, raising to base delay",
			slog.Duration("max_delay", config.MaxDelay),
			slog.Duration("base_delay", config.BaseDelay))
		config.MaxDelay = config.BaseDelay
	}

	return config
}
