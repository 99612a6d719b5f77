package model

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrLockTimeout is returned when the stack lock could not be acquired in time.
var ErrLockTimeout = errors.New("stack lock timeout")

// StackLock is the process-wide advisory lock guarding mutable node state.
// It is not reentrant.
type StackLock struct {
	sem *semaphore.Weighted
}

// NewStackLock creates an unlocked StackLock.
func NewStackLock() *StackLock {
	return &StackLock{sem: semaphore.NewWeighted(1)}
}

// Lock acquires the lock, waiting until ctx is done.
func (l *StackLock) Lock(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	return nil
}

// LockTimeout acquires the lock, waiting at most d.
func (l *StackLock) LockTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return l.Lock(ctx)
}

// TryLock acquires the lock only if it is free.
func (l *StackLock) TryLock() bool {
	return l.sem.TryAcquire(1)
}

// Unlock releases the lock.
func (l *StackLock) Unlock() {
	l.sem.Release(1)
}
