package repository

import (
	"context"
	"testing"
	"time"

	"aforo/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisImportLock(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr(), PoolSize: 2})
	defer Close(client)
	require.NoError(t, Ping(context.Background(), client))

	lock := NewRedisImportLock(client)
	ctx := context.Background()

	t.Run("AcquireOnce", func(t *testing.T) {
		ok, err := lock.Acquire(ctx, "2025-06-01", "a", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = lock.Acquire(ctx, "2025-06-01", "b", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = lock.Acquire(ctx, "2025-06-02", "b", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ReleaseOnlyByOwner", func(t *testing.T) {
		require.NoError(t, lock.Release(ctx, "2025-06-01", "b"))
		assert.True(t, s.Exists(importLockKey("2025-06-01")))

		require.NoError(t, lock.Release(ctx, "2025-06-01", "a"))
		assert.False(t, s.Exists(importLockKey("2025-06-01")))
	})

	t.Run("Expires", func(t *testing.T) {
		ok, err := lock.Acquire(ctx, "2025-06-03", "a", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		s.FastForward(2 * time.Second)

		ok, err = lock.Acquire(ctx, "2025-06-03", "b", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisImportLock_Unavailable(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	lock := NewRedisImportLock(client)
	_, err = lock.Acquire(context.Background(), "2025-06-01", "a", time.Minute)
	assert.Error(t, err)

	var nilLock RedisImportLock
	_, err = nilLock.Acquire(context.Background(), "2025-06-01", "a", time.Minute)
	assert.Error(t, err)
}
