package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/lock"
)

func TestLock_TryAcquire(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()

	a, err := lm.Create(ctx, "distribution")
	require.NoError(t, err)
	b, err := lm.Create(ctx, "distribution")
	require.NoError(t, err)
	other, err := lm.Create(ctx, "other")
	require.NoError(t, err)

	lostCh, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, a.IsLocked())

	_, err = b.TryAcquire(ctx)
	assert.Equal(t, lock.ErrLockHeld, err)
	assert.False(t, b.IsLocked())

	_, err = other.TryAcquire(ctx)
	assert.NoError(t, err)

	_, err = a.TryAcquire(ctx)
	assert.Error(t, err)

	require.NoError(t, a.Unlock(ctx))
	assert.False(t, a.IsLocked())
	select {
	case <-lostCh:
	default:
		t.Fatal("lost channel not closed on unlock")
	}

	_, err = b.TryAcquire(ctx)
	assert.NoError(t, err)
}

func TestLock_AcquireWaits(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()

	a, _ := lm.Create(ctx, "distribution")
	b, _ := lm.Create(ctx, "distribution")

	_, err := a.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		_, err := b.Acquire(ctx)
		acquired <- err
	}()

	select {
	case <-acquired:
		t.Fatal("acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, a.Unlock(ctx))

	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock not acquired after release")
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = a.Acquire(cancelled)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestLock_Revoke(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()

	a, _ := lm.Create(ctx, "distribution")
	lostCh, err := a.TryAcquire(ctx)
	require.NoError(t, err)

	lm.Revoke("distribution")

	select {
	case <-lostCh:
	case <-time.After(time.Second):
		t.Fatal("lost channel not closed on revoke")
	}
	assert.False(t, a.IsLocked())
}
