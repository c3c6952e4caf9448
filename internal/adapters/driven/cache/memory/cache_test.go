package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := New(4, 0)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "m", "dream")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "m", "dream", []float32{1, 2}))
	got, ok, err := c.Get(ctx, "m", "dream")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got)

	_, ok, _ = c.Get(ctx, "other-model", "dream")
	assert.False(t, ok, "keys are scoped by model")

	got[0] = 9
	again, _, _ := c.Get(ctx, "m", "dream")
	assert.Equal(t, float32(1), again[0], "callers get copies")
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "m", "a", []float32{1}))
	require.NoError(t, c.Set(ctx, "m", "b", []float32{2}))
	_, _, _ = c.Get(ctx, "m", "a")
	require.NoError(t, c.Set(ctx, "m", "c", []float32{3}))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "m", "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "m", "a")
	assert.True(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "m", "a", []float32{1}))
	now = now.Add(30 * time.Second)
	_, ok, _ := c.Get(ctx, "m", "a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "m", "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNew_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0, 0).capacity)
}
