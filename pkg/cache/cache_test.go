package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Version string `json:"version"`
}

func TestRedisCacheSetGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "pp")
	ctx := context.Background()

	mock.ExpectSet("pp:thresholds:current", []byte(`{"version":"v2"}`), time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, "thresholds:current", payload{Version: "v2"}, time.Minute))

	mock.ExpectGet("pp:thresholds:current").SetVal(`{"version":"v2"}`)
	var got payload
	require.NoError(t, c.Get(ctx, "thresholds:current", &got))
	assert.Equal(t, "v2", got.Version)

	mock.ExpectGet("pp:missing").RedisNil()
	assert.ErrorIs(t, c.Get(ctx, "missing", &got), ErrCacheMiss)

	mock.ExpectDel("pp:a", "pp:b").SetVal(2)
	require.NoError(t, c.Delete(ctx, "a", "b"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "pp")
	ctx := context.Background()

	mock.ExpectSetNX("pp:lock:run", "host-1", time.Minute).SetVal(true)
	ok, err := c.TryLock(ctx, "lock:run", "host-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectSetNX("pp:lock:run", "host-2", time.Minute).SetVal(false)
	ok, err = c.TryLock(ctx, "lock:run", "host-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectEval(unlockScript, []string{"pp:lock:run"}, "host-2").SetVal(int64(0))
	assert.ErrorIs(t, c.Unlock(ctx, "lock:run", "host-2"), ErrNotOwner)

	mock.ExpectEval(unlockScript, []string{"pp:lock:run"}, "host-1").SetVal(int64(1))
	assert.NoError(t, c.Unlock(ctx, "lock:run", "host-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryCacheExpiryAndLock(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Version: "v1"}, time.Minute))
	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "v1", got.Version)

	ok, err := c.TryLock(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = c.TryLock(ctx, "lock", "b", time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, c.Unlock(ctx, "lock", "b"), ErrNotOwner)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
	ok, _ = c.TryLock(ctx, "lock", "b", time.Minute)
	assert.True(t, ok, "expired lock can be taken over")
	assert.NoError(t, c.Unlock(ctx, "lock", "b"))
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time { return now }))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	now = now.Add(time.Second)
	var s string
	require.NoError(t, c.Get(ctx, "a", &s))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	assert.ErrorIs(t, c.Get(ctx, "b", &s), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "a", &s))
	assert.Equal(t, "1", s)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "thresholds:current", Key("thresholds", "current"))
	assert.Equal(t, "lock:run", Key("lock:", "", ":run"))
	assert.Equal(t, "", Key())
}
