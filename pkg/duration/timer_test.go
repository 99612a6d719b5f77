package duration

import (
	"sync/atomic"
	"testing"
	"time"
)

var identifyKey = Key{Endpoint: 1, Cluster: 0x0003}

func TestTimerBasic(t *testing.T) {
	timer := &Timer{
		Key:       identifyKey,
		StartTime: time.Now(),
		Duration:  60 * time.Second,
	}

	if timer.IsExpired() {
		t.Error("Timer should not be expired immediately")
	}

	remaining := timer.RemainingTime()
	if remaining < 59*time.Second || remaining > 60*time.Second {
		t.Errorf("RemainingTime() = %v, expected ~60s", remaining)
	}

	if timer.ExpiresAt() != timer.StartTime.Add(timer.Duration) {
		t.Errorf("ExpiresAt() = %v, want %v", timer.ExpiresAt(), timer.StartTime.Add(timer.Duration))
	}
}

func TestTimerExpired(t *testing.T) {
	timer := &Timer{
		Key:       identifyKey,
		StartTime: time.Now().Add(-2 * time.Second),
		Duration:  1 * time.Second,
	}

	if !timer.IsExpired() {
		t.Error("Timer should be expired")
	}
	if timer.RemainingTime() != 0 {
		t.Errorf("RemainingTime() = %v, want 0 for expired timer", timer.RemainingTime())
	}
}

func TestManagerInvalidDuration(t *testing.T) {
	m := NewManager()

	if err := m.SetTimer(identifyKey, 0, nil); err != ErrInvalidDuration {
		t.Errorf("SetTimer(0) error = %v, want ErrInvalidDuration", err)
	}
	if err := m.SetTimer(identifyKey, 25*time.Hour, nil); err != ErrInvalidDuration {
		t.Errorf("SetTimer(25h) error = %v, want ErrInvalidDuration", err)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})

	if err := m.SetTimer(identifyKey, 20*time.Millisecond, func() { close(done) }); err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not expire")
	}

	if m.Count() != 0 {
		t.Errorf("Count() after expiry = %d, want 0", m.Count())
	}
}

func TestManagerReplaceTimer(t *testing.T) {
	m := NewManager()
	var first, second atomic.Int32
	done := make(chan struct{})

	_ = m.SetTimer(identifyKey, 20*time.Millisecond, func() { first.Add(1) })
	_ = m.SetTimer(identifyKey, 40*time.Millisecond, func() {
		second.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not expire")
	}

	if first.Load() != 0 {
		t.Errorf("replaced timer fired %d times, want 0", first.Load())
	}
	if second.Load() != 1 {
		t.Errorf("replacement fired %d times, want 1", second.Load())
	}
}

func TestManagerCancel(t *testing.T) {
	m := NewManager()
	var fired atomic.Bool

	_ = m.SetTimer(identifyKey, 20*time.Millisecond, func() { fired.Store(true) })
	if err := m.CancelTimer(identifyKey); err != nil {
		t.Fatalf("CancelTimer() error = %v", err)
	}
	if err := m.CancelTimer(identifyKey); err != ErrTimerNotFound {
		t.Errorf("second CancelTimer() error = %v, want ErrTimerNotFound", err)
	}

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled timer fired")
	}
}

func TestManagerCancelEndpointTimers(t *testing.T) {
	m := NewManager()
	_ = m.SetTimer(Key{Endpoint: 1, Cluster: 3}, time.Minute, nil)
	_ = m.SetTimer(Key{Endpoint: 1, Cluster: 8}, time.Minute, nil)
	_ = m.SetTimer(Key{Endpoint: 2, Cluster: 3}, time.Minute, nil)

	m.CancelEndpointTimers(1)
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
	if m.GetTimer(Key{Endpoint: 2, Cluster: 3}) == nil {
		t.Error("endpoint 2 timer should remain")
	}
	if m.Remaining(Key{Endpoint: 1, Cluster: 3}) != 0 {
		t.Error("cancelled timer should report no remaining time")
	}

	m.CancelAll()
	if m.Count() != 0 {
		t.Errorf("Count() after CancelAll = %d, want 0", m.Count())
	}
}
