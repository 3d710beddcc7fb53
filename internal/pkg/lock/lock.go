// Package lock provides in-process per-user locking for mission mutations.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"daily-mission-tracker/internal/model"
)

// ErrLockTimeout is returned when a user's lock is not acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// userMutex is a one-slot semaphore, so acquisition can be abandoned when a
// context ends.
type userMutex chan struct{}

// UserLock serializes operations on the same user. Different users never
// block each other.
type UserLock struct {
	locks sync.Map // map[model.UserID]userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{}
}

// getLock retrieves or creates the mutex for the given user ID.
func (ul *UserLock) getLock(userID model.UserID) userMutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(userMutex)
	}

	// Store or load existing (handles race condition)
	actual, _ := ul.locks.LoadOrStore(userID, make(userMutex, 1))
	return actual.(userMutex)
}

// Lock acquires the lock for a user, blocking until it is free.
func (ul *UserLock) Lock(userID model.UserID) {
	ul.getLock(userID) <- struct{}{}
}

// Unlock releases the lock for a user. Unlocking a user that is not locked
// is a no-op.
func (ul *UserLock) Unlock(userID model.UserID) {
	if v, ok := ul.locks.Load(userID); ok {
		select {
		case <-v.(userMutex):
		default:
		}
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (ul *UserLock) TryLock(userID model.UserID) bool {
	select {
	case ul.getLock(userID) <- struct{}{}:
		return true
	default:
		return false
	}
}

// LockWithTimeout waits up to timeout for the user's lock.
// Returns ErrLockTimeout when the timeout elapses first, or ctx.Err() if ctx
// ends first.
func (ul *UserLock) LockWithTimeout(ctx context.Context, userID model.UserID, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ul.getLock(userID) <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithLock executes a function while holding the user's lock.
func (ul *UserLock) WithLock(userID model.UserID, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes a function while holding the user's lock,
// giving up if the lock is not acquired within timeout.
func (ul *UserLock) WithLockContext(ctx context.Context, userID model.UserID, timeout time.Duration, fn func() error) error {
	if err := ul.LockWithTimeout(ctx, userID, timeout); err != nil {
		return err
	}
	defer ul.Unlock(userID)

	// Check if context was cancelled while waiting for lock
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked checks if a user currently holds the lock.
// Note: This is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(userID model.UserID) bool {
	if v, ok := ul.locks.Load(userID); ok {
		return len(v.(userMutex)) > 0
	}
	return false
}
