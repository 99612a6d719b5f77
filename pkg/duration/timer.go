package duration

import (
	"errors"
	"sync"
	"time"
)

// Duration timer errors.
var (
	ErrTimerNotFound   = errors.New("timer not found")
	ErrInvalidDuration = errors.New("invalid duration")
)

// MaxDuration is the maximum allowed duration. It covers the full uint16
// range of second-based countdown attributes.
const MaxDuration = 24 * time.Hour

// Key identifies a timer by the cluster instance that owns it.
type Key struct {
	Endpoint uint16
	Cluster  uint32
}

// Timer represents an active duration timer.
type Timer struct {
	// Key identifies this timer.
	Key Key

	// StartTime is when the timer started.
	StartTime time.Time

	// Duration is the timer duration.
	Duration time.Duration

	timer    *time.Timer
	onExpiry func()
}

// ExpiresAt returns when the timer will expire.
func (t *Timer) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Duration)
}

// RemainingTime returns time until expiry.
func (t *Timer) RemainingTime() time.Duration {
	remaining := t.Duration - time.Since(t.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired returns true if the timer has expired.
func (t *Timer) IsExpired() bool {
	return time.Since(t.StartTime) >= t.Duration
}

// Manager manages countdown timers for cluster attributes.
type Manager struct {
	mu     sync.RWMutex
	timers map[Key]*Timer
}

// NewManager creates a new duration timer manager.
func NewManager() *Manager {
	return &Manager{
		timers: make(map[Key]*Timer),
	}
}

// SetTimer creates or replaces a timer. onExpiry runs in its own goroutine
// when the timer fires, after the timer has been removed.
func (m *Manager) SetTimer(key Key, d time.Duration, onExpiry func()) error {
	if d <= 0 || d > MaxDuration {
		return ErrInvalidDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.timers[key]; exists {
		existing.timer.Stop()
	}

	t := &Timer{
		Key:       key,
		StartTime: time.Now(),
		Duration:  d,
		onExpiry:  onExpiry,
	}
	t.timer = time.AfterFunc(d, func() {
		m.expireTimer(key, t)
	})

	m.timers[key] = t
	return nil
}

// CancelTimer cancels a timer without running its expiry callback.
func (m *Manager) CancelTimer(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.timers[key]
	if !exists {
		return ErrTimerNotFound
	}
	t.timer.Stop()
	delete(m.timers, key)
	return nil
}

// CancelEndpointTimers cancels all timers for an endpoint.
func (m *Manager) CancelEndpointTimers(endpoint uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, t := range m.timers {
		if key.Endpoint == endpoint {
			t.timer.Stop()
			delete(m.timers, key)
		}
	}
}

// CancelAll stops every timer.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, t := range m.timers {
		t.timer.Stop()
		delete(m.timers, key)
	}
}

// GetTimer returns a copy of the timer for key, or nil if not set.
func (m *Manager) GetTimer(key Key) *Timer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, exists := m.timers[key]; exists {
		return &Timer{
			Key:       t.Key,
			StartTime: t.StartTime,
			Duration:  t.Duration,
		}
	}
	return nil
}

// Remaining returns the time left on a timer, or 0 if none is running.
func (m *Manager) Remaining(key Key) time.Duration {
	if t := m.GetTimer(key); t != nil {
		return t.RemainingTime()
	}
	return 0
}

// Count returns the total number of active timers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timers)
}

func (m *Manager) expireTimer(key Key, fired *Timer) {
	m.mu.Lock()

	// A replaced timer may still fire if Stop lost the race.
	current, exists := m.timers[key]
	if !exists || current != fired {
		m.mu.Unlock()
		return
	}
	delete(m.timers, key)
	callback := current.onExpiry

	m.mu.Unlock()

	if callback != nil {
		callback()
	}
}
