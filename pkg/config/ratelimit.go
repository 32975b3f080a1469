package config

import (
	"log/slog"
	"time"

	"teamhub/pkg/ratelimit"
)

// LoadRateLimitConfig loads app rate limiting configuration from environment variables.
//
// Invalid values are logged and replaced by defaults instead of failing.
//
// Environment variables:
//   - RATELIMIT_ENABLED: Enable/disable rate limiting (default: true)
//   - RATELIMIT_WINDOW: Fixed window length (default: 1m)
//   - RATELIMIT_DEFAULT_RPM: Requests per window for apps without their own limit (default: 60)
//   - RATELIMIT_MAX_KEYS: Maximum windows kept in memory (default: 10000)
//   - RATELIMIT_BACKEND: "memory" or "redis" (default: memory)
//   - RATELIMIT_REDIS_ADDR: Redis host:port, required for the redis backend
//   - RATELIMIT_SWEEP_SCHEDULE: Cron expression for removing expired windows (default: @every 5m)
//
// Returns:
//   - *ratelimit.Config: Validated configuration with defaults applied
//   - error: Always nil (validation failures result in warnings and defaults)
func LoadRateLimitConfig() (*ratelimit.Config, error) {
	config := &ratelimit.Config{}

	config.Enabled = GetEnvBool("RATELIMIT_ENABLED", true)
	config.Window = positiveDuration("RATELIMIT_WINDOW", ratelimit.DefaultWindow)
	config.DefaultRequestsPerMinute = positiveInt("RATELIMIT_DEFAULT_RPM", 60)
	config.MaxActiveKeys = nonNegativeInt("RATELIMIT_MAX_KEYS", 10000)
	config.SweepSchedule = GetEnvString("RATELIMIT_SWEEP_SCHEDULE", defaultSweepSchedule)
	if err := ValidateCronSchedule(config.SweepSchedule); err != nil {
		slog.Warn("invalid RATELIMIT_SWEEP_SCHEDULE, using default",
			slog.String("error", err.Error()),
			slog.String("default", defaultSweepSchedule))
		config.SweepSchedule = defaultSweepSchedule
	}
	config.RedisAddr = GetEnvString("RATELIMIT_REDIS_ADDR", "")

	backend := ratelimit.Backend(GetEnvString("RATELIMIT_BACKEND", string(ratelimit.BackendMemory)))
	if !backend.IsValid() {
		slog.Warn("invalid RATELIMIT_BACKEND, using default",
			slog.String("value", string(backend)),
			slog.String("default", string(ratelimit.BackendMemory)))
		backend = ratelimit.BackendMemory
	}
	config.Backend = backend

	if err := config.Validate(); err != nil {
		slog.Warn("rate limit configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}

	return config, nil
}

const defaultSweepSchedule = "@every 5m"

// sweepTimeout bounds a single sweep run started by the scheduler.
const sweepTimeout = 30 * time.Second

// SweepTimeout returns the deadline applied to each scheduled sweep.
func SweepTimeout() time.Duration {
	return GetEnvDuration("RATELIMIT_SWEEP_TIMEOUT", sweepTimeout)
}
