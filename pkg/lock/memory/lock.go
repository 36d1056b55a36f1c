package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/lock"
)

const pollInterval = 10 * time.Millisecond

// LockManager is an in-process lock.Manager. Locks of the same name created
// through one manager exclude each other.
type LockManager struct {
	mu      sync.Mutex
	holders map[string]*Lock
}

func NewLockManager() *LockManager {
	return &LockManager{
		holders: make(map[string]*Lock),
	}
}

// Create implements lock.Manager.Create
func (lm *LockManager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	return &Lock{
		lm:   lm,
		name: name,
	}, nil
}

// Revoke drops the current holder of name, as an expired session would.
func (lm *LockManager) Revoke(name string) {
	lm.mu.Lock()
	holder, ok := lm.holders[name]
	if ok {
		delete(lm.holders, name)
	}
	lm.mu.Unlock()

	if ok {
		holder.lost()
	}
}

func (lm *LockManager) tryClaim(l *Lock) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if holder, ok := lm.holders[l.name]; ok && holder != l {
		return false
	}
	lm.holders[l.name] = l
	return true
}

func (lm *LockManager) release(l *Lock) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.holders[l.name] == l {
		delete(lm.holders, l.name)
	}
}

// Lock is an in-memory lock.DistributedLock.
type Lock struct {
	lm   *LockManager
	name string

	mu     sync.Mutex
	lostCh chan struct{}
}

// Acquire implements lock.DistributedLock.Acquire
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	for {
		lostCh, err := l.TryAcquire(ctx)
		if err != lock.ErrLockHeld {
			return lostCh, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// TryAcquire implements lock.DistributedLock.TryAcquire
func (l *Lock) TryAcquire(ctx context.Context) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lostCh != nil {
		return nil, errors.New("lock is already acquired by this handle")
	}
	if !l.lm.tryClaim(l) {
		return nil, lock.ErrLockHeld
	}

	l.lostCh = make(chan struct{})
	return l.lostCh, nil
}

// Unlock implements lock.DistributedLock.Unlock
func (l *Lock) Unlock(_ context.Context) error {
	l.lm.release(l)
	l.lost()
	return nil
}

// IsLocked implements lock.DistributedLock.IsLocked
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lostCh != nil
}

func (l *Lock) lost() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lostCh != nil {
		close(l.lostCh)
		l.lostCh = nil
	}
}
