package postgres

import (
	"context"
	"database/sql/driver"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

// dsnEnv names a database the integration tests may truncate.
const dsnEnv = "REVERIE_TEST_POSTGRES_DSN"

func TestStore_Conformance(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	storetest.Run(t, func(t *testing.T) driven.KnowledgeStore {
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		require.NoError(t, err)
		require.NoError(t, s.Truncate(ctx))
		return s
	})
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestSimilarityQuery(t *testing.T) {
	query, args, err := similarityQuery(domain.SimilarityQuery{
		Scope:     "jungian",
		Embedding: []float32{1, 0},
		Threshold: 0.3,
		Limit:     5,
		Filter: &domain.MetadataFilter{
			ContentTypes: []domain.ContentType{domain.ContentDreamExample, domain.ContentSymbol},
			Themes:       []string{"water"},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "SELECT id, scope, source"))
	assert.Contains(t, query, "1 - (embedding <=> $1) AS similarity")
	assert.Contains(t, query, "scope = $2")
	assert.Contains(t, query, "content_type IN ($3,$4)")
	assert.Contains(t, query, "themes && $5")
	assert.Contains(t, query, "1 - (embedding <=> $6) >= $7")
	assert.Contains(t, query, "ORDER BY similarity DESC, id LIMIT 5")
	require.Len(t, args, 7)
	assert.Equal(t, 0.3, args[6])
}

func TestSimilarityQuery_NoFilter(t *testing.T) {
	query, args, err := similarityQuery(domain.SimilarityQuery{Embedding: []float32{1}})
	require.NoError(t, err)

	assert.NotContains(t, query, "scope =")
	assert.NotContains(t, query, "LIMIT")
	assert.Len(t, args, 3)
}

func TestInsertChunksQuery(t *testing.T) {
	c := storetest.Chunk("p", "src", 0, []float32{1, 0}, domain.ContentTheory)
	c.ID = ""
	c.Themes = nil
	c.SparseEmbedding = map[string]float32{"dream": 1}

	query, args, err := insertChunksQuery([]domain.Chunk{c}, time.Unix(10, 0))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO reverie_chunks (id,scope,source"))
	require.Len(t, args, len(chunkColumns))
	assert.NotEmpty(t, args[0], "an id is assigned")
	assert.NotNil(t, args[9], "nil themes bind as an empty array")
	assert.Equal(t, `{"dream":1}`, args[18])
	assert.Equal(t, time.Unix(10, 0), args[19])
}

func TestSaveThemesQuery(t *testing.T) {
	query, args, err := saveThemesQuery([]domain.Theme{
		{Code: "water", Label: "Water", Embedding: []float32{1}},
		{Code: "anima", Label: "Anima"},
	})
	require.NoError(t, err)

	assert.Contains(t, query, "ON CONFLICT (code) DO UPDATE")
	require.Len(t, args, 12)
	assert.Nil(t, args[11], "an unembedded theme stores NULL")

	_, _, err = saveThemesQuery([]domain.Theme{{Code: "Bad", Label: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchThemesQuery(t *testing.T) {
	query, args, err := searchThemesQuery([]float32{1, 0, 0}, 0.5, 3)
	require.NoError(t, err)

	assert.Contains(t, query, "vector_dims(embedding) = $1")
	assert.Contains(t, query, "LIMIT 3")
	require.Len(t, args, 5)
	assert.Equal(t, 3, args[0])
	assert.Equal(t, 0.5, args[4])
}

func TestTextArray(t *testing.T) {
	v, err := textArray(nil).(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}
