package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImportLock(t *testing.T) {
	lock := NewMemoryImportLock()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "2025-06-01", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = lock.Acquire(ctx, "2025-06-01", "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx, "2025-06-01", "b"))
	ok, _ = lock.Acquire(ctx, "2025-06-01", "b", time.Minute)
	assert.False(t, ok, "release by a non-owner is ignored")

	require.NoError(t, lock.Release(ctx, "2025-06-01", "a"))
	ok, _ = lock.Acquire(ctx, "2025-06-01", "b", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = lock.Acquire(ctx, "2025-06-01", "c", time.Minute)
	assert.True(t, ok, "expired lock is taken over")
}
