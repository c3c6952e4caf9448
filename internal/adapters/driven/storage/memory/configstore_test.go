package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("embedding.provider", "openai"))

	val, ok := store.Get("embedding.provider")
	assert.True(t, ok)
	assert.Equal(t, "openai", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "text")
	_ = store.Set("i", 7)
	_ = store.Set("i64", int64(9))
	_ = store.Set("f", 0.25)
	_ = store.Set("b", true)
	_ = store.Set("list", []any{"a", 2, "b"})

	assert.Equal(t, "text", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 9, store.GetInt("i64"))
	assert.Equal(t, 0, store.GetInt("f"), "floats truncate")
	assert.InDelta(t, 0.25, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 9.0, store.GetFloat("i64"), 1e-9)
	assert.Zero(t, store.GetFloat("s"))
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
	assert.Nil(t, store.GetStringSlice("s"))
}

func TestConfigStore_Keys(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("personas.jungian.scope", "jung")
	_ = store.Set("personas.eclectic.max_results", 4)
	_ = store.Set("store.backend", "memory")

	assert.Equal(t, []string{"personas.eclectic.max_results", "personas.jungian.scope"}, store.Keys("personas."))
	assert.Empty(t, store.Keys("cache."))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k.%d", n)
			_ = store.Set(key, n)
			_ = store.GetInt(key)
			_ = store.Keys("k.")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys("k."), 50)
}

func TestNewConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"store.backend": "memory", "ingest.workers": 2}
	store := NewConfigStore(seed, map[string]any{"ingest.workers": 4})

	assert.Equal(t, "memory", store.GetString("store.backend"))
	assert.Equal(t, 4, store.GetInt("ingest.workers"), "later seeds win")

	_ = store.Set("store.backend", "sqlite")
	assert.Equal(t, "memory", seed["store.backend"], "seed maps are copied")
}
