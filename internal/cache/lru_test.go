package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUStoresAndInvalidates(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[[]string](4, time.Minute)

	_, ok := c.Get(ctx, "latest")
	assert.False(t, ok)

	c.Set(ctx, "latest", []string{"AndroidApk"})
	got, ok := c.Get(ctx, "latest")
	require.True(t, ok)
	assert.Equal(t, []string{"AndroidApk"}, got)

	c.Delete(ctx, "latest")
	_, ok = c.Get(ctx, "latest")
	assert.False(t, ok)
}

func TestLRUExpiresEntries(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[int](4, 20*time.Millisecond)

	c.Set(ctx, "k", 1)
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLRUEvictsOldestBeyondSize(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[int](2, time.Minute)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	c.Set(ctx, "c", 3)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}
