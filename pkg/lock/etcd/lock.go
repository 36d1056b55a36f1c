package etcd

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	v3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/code-payments/code-launchpad/pkg/lock"
)

var ErrManagerClosed = errors.New("lock manager is closed")

const sessionRetryInterval = time.Second

// LockManager hands out etcd mutexes under a root key, all bound to a single
// lease-backed session. Locks are released when the session is lost.
type LockManager struct {
	log     *logrus.Entry
	client  *v3.Client
	rootKey string
	ttl     int

	closeOnce sync.Once
	closeCh   chan struct{}

	sessionMu sync.Mutex
	session   *concurrency.Session
}

// NewLockManager returns a LockManager whose session lease lives for ttl.
// ttl must be within [1s, 60s].
func NewLockManager(client *v3.Client, rootKey string, ttl time.Duration) (*LockManager, error) {
	if ttl < time.Second || ttl > time.Minute {
		return nil, errors.Errorf("invalid lock ttl: %v (must be [1s, 60s])", ttl)
	}

	ttlSeconds := int(ttl.Round(time.Second).Seconds())
	session, err := newSession(client, ttlSeconds)
	if err != nil {
		return nil, err
	}

	lm := &LockManager{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "lock/etcd/LockManager",
			"root": rootKey,
		}),
		client:  client,
		rootKey: rootKey,
		ttl:     ttlSeconds,
		closeCh: make(chan struct{}),
		session: session,
	}

	go lm.renewSession()

	return lm, nil
}

func newSession(client *v3.Client, ttl int) (*concurrency.Session, error) {
	session, err := concurrency.NewSession(
		client,
		concurrency.WithTTL(ttl),
		concurrency.WithContext(v3.WithRequireLeader(context.Background())),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create etcd session")
	}
	return session, nil
}

// Create implements lock.Manager.Create
func (lm *LockManager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	if lm.currentSession() == nil {
		return nil, ErrManagerClosed
	}

	key := path.Join(lm.rootKey, name)
	return &Lock{
		log: lm.log.WithField("key", key),
		lm:  lm,
		key: key,
	}, nil
}

// Close releases every lock held through the manager.
func (lm *LockManager) Close() {
	lm.closeOnce.Do(func() {
		close(lm.closeCh)

		lm.sessionMu.Lock()
		defer lm.sessionMu.Unlock()

		if err := lm.session.Close(); err != nil {
			lm.log.WithError(err).Warn("failed to close etcd session")
		}
		lm.session = nil
	})
}

func (lm *LockManager) currentSession() *concurrency.Session {
	lm.sessionMu.Lock()
	defer lm.sessionMu.Unlock()
	return lm.session
}

// renewSession replaces the session whenever its lease is lost, so that the
// manager recovers once the cluster is healthy again.
func (lm *LockManager) renewSession() {
	for {
		session := lm.currentSession()
		if session == nil {
			return
		}

		select {
		case <-lm.closeCh:
			return
		case <-session.Done():
		}

		lm.log.Info("lock session expired, recreating")

		for {
			replacement, err := newSession(lm.client, lm.ttl)
			if err == nil {
				lm.sessionMu.Lock()
				if lm.session == nil {
					lm.sessionMu.Unlock()
					replacement.Close()
					return
				}
				lm.session = replacement
				lm.sessionMu.Unlock()
				break
			}

			lm.log.WithError(err).Warn("failed to recreate lock session")
			select {
			case <-lm.closeCh:
				return
			case <-time.After(sessionRetryInterval):
			}
		}
	}
}

// Lock is an etcd backed lock.DistributedLock.
type Lock struct {
	log *logrus.Entry
	lm  *LockManager
	key string

	mu      sync.Mutex
	mutex   *concurrency.Mutex
	session *concurrency.Session
	lostCh  chan struct{}
	stopCh  chan struct{}
}

// Acquire implements lock.DistributedLock.Acquire
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	return l.acquire(ctx, func(ctx context.Context, m *concurrency.Mutex) error {
		return m.Lock(ctx)
	})
}

// TryAcquire implements lock.DistributedLock.TryAcquire
func (l *Lock) TryAcquire(ctx context.Context) (<-chan struct{}, error) {
	return l.acquire(ctx, func(ctx context.Context, m *concurrency.Mutex) error {
		err := m.TryLock(ctx)
		if err == concurrency.ErrLocked {
			return lock.ErrLockHeld
		}
		return err
	})
}

func (l *Lock) acquire(ctx context.Context, lockFn func(context.Context, *concurrency.Mutex) error) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mutex != nil {
		return nil, errors.New("lock is already acquired by this handle")
	}

	session := l.lm.currentSession()
	if session == nil {
		return nil, ErrManagerClosed
	}

	mutex := concurrency.NewMutex(session, l.key)
	if err := lockFn(ctx, mutex); err != nil {
		if err == lock.ErrLockHeld {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to acquire lock")
	}

	l.log.Debug("lock acquired")

	l.mutex = mutex
	l.session = session
	l.lostCh = make(chan struct{})
	l.stopCh = make(chan struct{})

	go l.watch(session, l.lostCh, l.stopCh)

	return l.lostCh, nil
}

func (l *Lock) watch(session *concurrency.Session, lostCh, stopCh chan struct{}) {
	defer close(lostCh)

	select {
	case <-stopCh:
	case <-session.Done():
		l.log.Warn("lock session ended, lock lost")

		l.mu.Lock()
		if l.lostCh == lostCh {
			l.mutex = nil
			l.session = nil
			l.lostCh = nil
			l.stopCh = nil
		}
		l.mu.Unlock()
	}
}

// Unlock implements lock.DistributedLock.Unlock
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mutex == nil {
		return nil
	}

	err := l.mutex.Unlock(ctx)
	close(l.stopCh)

	l.mutex = nil
	l.session = nil
	l.lostCh = nil
	l.stopCh = nil

	if err != nil {
		return errors.Wrap(err, "failed to release lock")
	}
	return nil
}

// IsLocked implements lock.DistributedLock.IsLocked
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mutex != nil
}
