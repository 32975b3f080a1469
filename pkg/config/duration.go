package config

import (
	"fmt"
	"log/slog"
	"time"
)

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateDurationRange validates that min <= d <= max.
//
// Example:
//
//	// Email timeout must stay between 100ms and 5m
//	if err := ValidateDurationRange(timeout, 100*time.Millisecond, 5*time.Minute); err != nil {
//	    return fmt.Errorf("invalid email timeout: %w", err)
//	}
func ValidateDurationRange(d, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}
	if d < min {
		return fmt.Errorf("duration %v is below minimum %v", d, min)
	}
	if d > max {
		return fmt.Errorf("duration %v exceeds maximum %v", d, max)
	}
	return nil
}

// ValidateNonNegativeDuration validates that a duration is >= 0.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %v", d)
	}
	return nil
}

// positiveDuration reads key and falls back to defaultValue, with a warning,
// when the value is not positive.
func positiveDuration(key string, defaultValue time.Duration) time.Duration {
	value := GetEnvDuration(key, defaultValue)
	if err := ValidatePositiveDuration(value); err != nil {
		slog.Warn("invalid "+key+", using default",
			slog.String("value", value.String()),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// nonNegativeInt reads key and falls back to defaultValue, with a warning,
// when the value is negative.
func nonNegativeInt(key string, defaultValue int) int {
	value := GetEnvInt(key, defaultValue)
	if value < 0 {
		slog.Warn("invalid "+key+", using default",
			slog.Int("value", value),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return value
}

// positiveInt is nonNegativeInt that also rejects zero.
func positiveInt(key string, defaultValue int) int {
	value := GetEnvInt(key, defaultValue)
	if value <= 0 {
		slog.Warn("invalid "+key+", using default",
			slog.Int("value", value),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return value
}
