// Package testutil provides deterministic clocks and sleepers for tests.
package testutil

import (
	"sync"
	"time"
)

// MockClock is a manually driven clock. It satisfies the Clock interfaces of
// pkg/ratelimit and internal/resilience/circuitbreaker.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMockClock returns a clock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
