package ratelimit

import (
	"fmt"
	"time"
)

// DefaultWindow is the fixed window length used when none is configured.
const DefaultWindow = 60 * time.Second

// Backend selects the WindowStore implementation.
type Backend string

const (
	// BackendMemory keeps windows in process memory.
	BackendMemory Backend = "memory"

	// BackendRedis keeps windows in Redis, falling back to memory when Redis
	// is unavailable.
	BackendRedis Backend = "redis"
)

// IsValid checks if the backend is a recognized value.
func (b Backend) IsValid() bool {
	switch b {
	case BackendMemory, BackendRedis:
		return true
	default:
		return false
	}
}

// Config contains the configuration for app rate limiting.
type Config struct {
	// Feature flag to enable/disable rate limiting
	Enabled bool

	// Window is the fixed window length.
	Window time.Duration

	// DefaultRequestsPerMinute applies to registered apps without their own limit.
	DefaultRequestsPerMinute int

	// MaxActiveKeys bounds the in-memory store; LRU eviction starts beyond it.
	MaxActiveKeys int

	// SweepSchedule is the cron expression for removing expired windows.
	SweepSchedule string

	// Backend selects the store implementation.
	Backend Backend

	// RedisAddr is the host:port of the Redis server for BackendRedis.
	RedisAddr string
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("Window must be positive, got %s", c.Window)
	}
	if c.DefaultRequestsPerMinute <= 0 {
		return fmt.Errorf("DefaultRequestsPerMinute must be positive, got %d", c.DefaultRequestsPerMinute)
	}
	if c.MaxActiveKeys < 0 {
		return fmt.Errorf("MaxActiveKeys must be non-negative, got %d", c.MaxActiveKeys)
	}
	if c.SweepSchedule == "" {
		return fmt.Errorf("SweepSchedule cannot be empty")
	}
	if !c.Backend.IsValid() {
		return fmt.Errorf("Backend has invalid value %q", c.Backend)
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("RedisAddr is required for the redis backend")
	}
	return nil
}

// ApplyDefaults fills zero values with safe defaults.
func (c *Config) ApplyDefaults() {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.DefaultRequestsPerMinute <= 0 {
		c.DefaultRequestsPerMinute = 60
	}
	if c.MaxActiveKeys <= 0 {
		c.MaxActiveKeys = 10000
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 5m"
	}
	if !c.Backend.IsValid() {
		c.Backend = BackendMemory
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		c.Backend = BackendMemory
	}
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() *Config {
	config := &Config{Enabled: true}
	config.ApplyDefaults()
	return config
}
