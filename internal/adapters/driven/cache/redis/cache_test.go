package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/cache"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_GetSet(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "m", "snake dream")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "m", "snake dream", []float32{0.5, -1, 2}))
	got, ok, err := c.Get(ctx, "m", "snake dream")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.5, -1, 2}, got)

	assert.True(t, mr.Exists(cache.Key("m", "snake dream")))
	assert.Equal(t, time.Hour, mr.TTL(cache.Key("m", "snake dream")))
}

func TestCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "m", "a", []float32{1}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "m", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptValue(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set(cache.Key("m", "a"), "abc"))

	_, _, err := c.Get(context.Background(), "m", "a")
	assert.Error(t, err)
}

func TestCache_ServerDown(t *testing.T) {
	c, mr := newTestCache(t, 0)
	mr.Close()

	_, _, err := c.Get(context.Background(), "m", "a")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "m", "a", []float32{1}))
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Dial(context.Background(), mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = Dial(context.Background(), "127.0.0.1:1", time.Minute)
	assert.Error(t, err)
}
