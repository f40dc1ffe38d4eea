package wsman

import (
	"sync"
	"time"
)

// Clock provides time operations (injectable for testing).
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using actual system time.
type realClock struct{}

// Now returns the current system time.
func (realClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a Clock that only moves when advanced.
type ManualClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewManualClock creates a manual clock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{current: start}
}

// Now returns the current time of the clock.
func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the clock forward by d.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}
