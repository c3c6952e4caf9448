package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.KnowledgeStore {
		return setupTestStore(t)
	})
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestMigrate_RecordsVersionAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, store.InsertChunks(ctx, []domain.Chunk{
		storetest.Chunk("p", "src", 0, []float32{1, 0}, domain.ContentTheory),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, err = reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	chunks, err := reopened.ListChunks(ctx, driven.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	err = reopened.InsertChunks(ctx, []domain.Chunk{
		storetest.Chunk("p", "src", 1, []float32{1, 0, 0}, domain.ContentTheory),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch, "dimensionality survives a reopen")
}

func TestStore_SparseEmbeddingRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	c := storetest.Chunk("p", "src", 0, []float32{1, 0}, domain.ContentSymbol)
	c.SparseEmbedding = map[string]float32{"serpent": 1.5}
	c.Chapter = "II"
	require.NoError(t, store.InsertChunks(ctx, []domain.Chunk{c}))

	got, err := store.ListChunks(ctx, driven.ChunkFilter{Scope: "p"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]float32{"serpent": 1.5}, got[0].SparseEmbedding)
	assert.Equal(t, "II", got[0].Chapter)
}

func TestFloat32Bytes(t *testing.T) {
	in := []float32{0, -1.5, 3.25}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestFilterWhere(t *testing.T) {
	where := filterWhere("jungian", &domain.MetadataFilter{
		ContentTypes: []domain.ContentType{domain.ContentSymbol},
		Themes:       []string{"water", "snake"},
	})

	sql, args, err := where.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "scope = ?")
	assert.Contains(t, sql, "content_type IN (?)")
	assert.Contains(t, sql, "json_each.value IN (?,?)")
	assert.Equal(t, []any{"jungian", "symbol", "water", "snake"}, args)
}
