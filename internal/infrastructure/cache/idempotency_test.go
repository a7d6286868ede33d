package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receipt struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

func newStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, "ledger:transfer:req:", time.Minute), mr
}

func TestIdempotencyStore_Flow(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	var got receipt
	found, err := store.Lookup(ctx, "r1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := store.Reserve(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Lookup(ctx, "r1", &got)
	require.ErrorIs(t, err, ErrRequestInProgress)

	require.NoError(t, store.Complete(ctx, "r1", receipt{From: "ACC001", Amount: "10.00"}))
	found, err = store.Lookup(ctx, "r1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, receipt{From: "ACC001", Amount: "10.00"}, got)

	assert.True(t, mr.Exists("ledger:transfer:req:r1"))
	assert.Equal(t, time.Minute, mr.TTL("ledger:transfer:req:r1"))

	mr.FastForward(2 * time.Minute)
	found, err = store.Lookup(ctx, "r1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStore_Release(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	ok, err := store.Reserve(ctx, "r2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "r2"))

	ok, err = store.Reserve(ctx, "r2")
	require.NoError(t, err)
	assert.True(t, ok)
}
