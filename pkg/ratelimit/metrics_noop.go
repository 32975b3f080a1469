package ratelimit

import "time"

// NoOpMetrics implements Metrics with no-op methods.
//
// It is the default when no collector is configured and is used by tests
// that do not assert on metrics.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new NoOpMetrics instance.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordAllowed is a no-op implementation.
func (m *NoOpMetrics) RecordAllowed(identity, path string) {}

// RecordDenied is a no-op implementation.
func (m *NoOpMetrics) RecordDenied(identity, path string) {}

// RecordError is a no-op implementation.
func (m *NoOpMetrics) RecordError(reason string) {}

// RecordCheckDuration is a no-op implementation.
func (m *NoOpMetrics) RecordCheckDuration(duration time.Duration) {}

// SetActiveKeys is a no-op implementation.
func (m *NoOpMetrics) SetActiveKeys(count int) {}

// RecordEviction is a no-op implementation.
func (m *NoOpMetrics) RecordEviction(count int) {}

var _ Metrics = (*NoOpMetrics)(nil)
