package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestDistributedLock_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	a := NewSnapshotLock(client, 10*time.Second)
	b := NewSnapshotLock(client, 10*time.Second)
	require.NotEqual(t, a.Value(), b.Value())

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// b 释放不掉 a 的锁
	require.NoError(t, b.Unlock(ctx))
	assert.True(t, mr.Exists(snapshotLockKey))

	require.NoError(t, a.Unlock(ctx))
	assert.False(t, mr.Exists(snapshotLockKey))

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributedLock_LockRetriesUntilFailure(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	holder := NewDistributedLock(client, "k", "holder", time.Minute)
	ok, err := holder.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	waiter := NewDistributedLock(client, "k", "waiter", time.Minute)
	err = waiter.Lock(ctx, time.Millisecond, 3)
	require.ErrorIs(t, err, ErrLockFailed)

	require.NoError(t, holder.Unlock(ctx))
	require.NoError(t, waiter.Lock(ctx, time.Millisecond, 3))
}

func TestDistributedLock_Refresh(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	l := NewDistributedLock(client, "k", "me", 5*time.Second)
	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(4 * time.Second)
	require.NoError(t, l.Refresh(ctx))
	assert.Equal(t, 5*time.Second, mr.TTL("k"))

	mr.FastForward(6 * time.Second)
	require.ErrorIs(t, l.Refresh(ctx), ErrNotHeld)
}
