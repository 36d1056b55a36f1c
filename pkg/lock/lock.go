package lock

import (
	"context"

	"github.com/pkg/errors"
)

// ErrLockHeld is returned by TryAcquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another owner")

// Manager creates named locks that span processes.
type Manager interface {
	// Create returns an unlocked DistributedLock for name.
	Create(ctx context.Context, name string) (DistributedLock, error)
}

// DistributedLock is a handle to a lock shared across processes. A handle
// must not be acquired concurrently.
type DistributedLock interface {
	// Acquire blocks until the lock is held. The returned channel is closed
	// when the lock is lost, which happens on Unlock or when the backing
	// session expires.
	Acquire(ctx context.Context) (<-chan struct{}, error)

	// TryAcquire is Acquire without blocking. ErrLockHeld is returned when
	// someone else holds the lock.
	TryAcquire(ctx context.Context) (<-chan struct{}, error)

	// Unlock releases the lock. It is a no-op when the lock isn't held.
	Unlock(ctx context.Context) error

	// IsLocked reports whether this handle holds the lock.
	IsLocked() bool
}
