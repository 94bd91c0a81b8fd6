package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrAlreadyHeld = errors.New("lock already held by this process")
var ErrNotAcquired = errors.New("lock not acquired")

// Locker abstracts distributed locking implementations.
type Locker interface {
	// Acquire attempts to lock a key for the given TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) error
	// Release frees the lock for the given key.
	Release(ctx context.Context, key string) error
}

// OrderEmailKey is the lock key guarding one confirmation send. It only
// serialises concurrent sends; a later redelivery acquires it again.
func OrderEmailKey(orderID string, recipient string) string {
	return fmt.Sprintf("orders:email:%s:%s", orderID, recipient)
}

// NoopLocker always succeeds. It is used when no lock backend is configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(_ context.Context, _ string, _ time.Duration) error { return nil }
func (NoopLocker) Release(_ context.Context, _ string) error                  { return nil }
