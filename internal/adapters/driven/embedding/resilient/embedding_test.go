package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/reverie/internal/core/domain"
)

// flakyEmbedder fails the first failures calls.
type flakyEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	dims     int
	delay    time.Duration
}

func (f *flakyEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= f.failures {
		return nil, f.err
	}
	return make([]float32, f.dims), nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *flakyEmbedder) Dimensions() int            { return f.dims }
func (f *flakyEmbedder) ModelName() string          { return "flaky" }
func (f *flakyEmbedder) Ping(context.Context) error { return nil }
func (f *flakyEmbedder) Close() error               { return nil }

func (f *flakyEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
	err  error
}

func (c *mapCache) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.data[model+"|"+text]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, model, text string, v []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]float32)
	}
	c.data[model+"|"+text] = v
	return nil
}

func fastConfig() Config {
	return Config{InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Op: "query"}
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: errors.New("connection reset"), dims: 4}

	vec, err := New(inner, fastConfig()).Embed(context.Background(), "falling")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 3, inner.Calls())
}

func TestEmbed_ExhaustedBudget(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: errors.New("503 service unavailable"), dims: 4}

	_, err := New(inner, fastConfig()).Embed(context.Background(), "falling")

	var embErr *domain.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, "query", embErr.Op)
	assert.Equal(t, 3, embErr.Attempts)
	assert.Len(t, embErr.QueryHash, 8)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.NotContains(t, err.Error(), "falling")
	assert.Equal(t, 3, inner.Calls())
}

func TestEmbed_PermanentErrorStopsEarly(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: domain.ErrDimensionMismatch, dims: 4}

	_, err := New(inner, fastConfig()).Embed(context.Background(), "water")

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, inner.Calls())
}

func TestEmbed_PerCallTimeout(t *testing.T) {
	inner := &flakyEmbedder{dims: 4, delay: time.Second}
	cfg := fastConfig()
	cfg.Timeout = 5 * time.Millisecond
	cfg.Attempts = 2

	start := time.Now()
	_, err := New(inner, cfg).Embed(context.Background(), "water")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 2, inner.Calls())
}

func TestEmbed_CancelledContext(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: errors.New("down"), dims: 4}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(inner, fastConfig()).Embed(ctx, "water")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbed_CacheHitSkipsInner(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: errors.New("down"), dims: 2}
	cache := &mapCache{data: map[string][]float32{"flaky|water": {0.5, 0.5}}}
	cfg := fastConfig()
	cfg.Cache = cache

	vec, err := New(inner, cfg).Embed(context.Background(), "water")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, 0, inner.Calls())
}

func TestEmbed_StoresInCache(t *testing.T) {
	inner := &flakyEmbedder{dims: 2}
	cache := &mapCache{}
	cfg := fastConfig()
	cfg.Cache = cache
	s := New(inner, cfg)

	_, err := s.Embed(context.Background(), "fire")
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "fire")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.Calls())
}

func TestEmbed_CacheErrorFallsThrough(t *testing.T) {
	inner := &flakyEmbedder{dims: 2}
	cfg := fastConfig()
	cfg.Cache = &mapCache{err: errors.New("redis down")}

	_, err := New(inner, cfg).Embed(context.Background(), "fire")

	assert.NoError(t, err)
	assert.Equal(t, 1, inner.Calls())
}

func TestEmbed_RateLimited(t *testing.T) {
	inner := &flakyEmbedder{dims: 2}
	cfg := fastConfig()
	cfg.RequestsPerSecond = 20
	s := New(inner, cfg)

	start := time.Now()
	for i := 0; i < 22; i++ {
		_, err := s.Embed(context.Background(), "x")
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestEmbedBatch(t *testing.T) {
	inner := &flakyEmbedder{failures: 1, err: errors.New("reset"), dims: 3}

	vecs, err := New(inner, fastConfig()).EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestEmbedSparse_Forwards(t *testing.T) {
	s := New(hashing.NewEmbeddingService(8), fastConfig())

	w, err := s.EmbedSparse(context.Background(), "serpent")
	require.NoError(t, err)
	assert.Contains(t, w, "serpent")

	w, err = New(&flakyEmbedder{dims: 2}, fastConfig()).EmbedSparse(context.Background(), "serpent")
	assert.NoError(t, err)
	assert.Nil(t, w)

	assert.Equal(t, hashing.ModelName, s.ModelName())
	assert.Equal(t, 8, s.Dimensions())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
