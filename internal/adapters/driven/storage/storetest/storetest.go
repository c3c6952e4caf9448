// Package storetest is a conformance suite shared by the knowledge store
// adapters. Each adapter's tests call Run with a constructor.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) driven.KnowledgeStore

// Chunk builds a complete, storable chunk.
func Chunk(scope, source string, position int, vec []float32, ct domain.ContentType, themes ...string) domain.Chunk {
	return domain.Chunk{
		ID:          fmt.Sprintf("%s-%s-%d", scope, source, position),
		Scope:       scope,
		Source:      source,
		Position:    position,
		StartOffset: position * 100,
		EndOffset:   position*100 + 90,
		Content:     fmt.Sprintf("chunk %d of %s", position, source),
		ContentType: ct,
		Themes:      themes,
		Concepts:    []string{},
		Complexity:  0.4,
		Confidence:  domain.Confidence{ContentType: 0.7, Themes: 0.5, Overall: 0.6},
		Embedding:   vec,
	}
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s driven.KnowledgeStore)
	}{
		{"InsertAndList", testInsertAndList},
		{"InsertRejectsIncomplete", testInsertRejectsIncomplete},
		{"InsertRejectsDimensionMismatch", testInsertRejectsDimensionMismatch},
		{"InsertRejectsDuplicatePosition", testInsertRejectsDuplicatePosition},
		{"SimilaritySearch", testSimilaritySearch},
		{"SimilaritySearchFilter", testSimilaritySearchFilter},
		{"ExistingPositions", testExistingPositions},
		{"Themes", testThemes},
		{"UpdateClassification", testUpdateClassification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func testInsertAndList(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	chunks := []domain.Chunk{
		Chunk("jungian", "B", 1, []float32{0, 1}, domain.ContentTheory, "shadow"),
		Chunk("jungian", "B", 0, []float32{1, 0}, domain.ContentDreamExample, "water", "shadow"),
		Chunk("jungian", "A", 0, []float32{1, 1}, domain.ContentSymbol),
		Chunk("freudian", "A", 0, []float32{1, 1}, domain.ContentTheory),
	}
	chunks[2].ID = ""
	require.NoError(t, s.InsertChunks(ctx, chunks))

	got, err := s.ListChunks(ctx, driven.ChunkFilter{Scope: "jungian"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Source)
	assert.NotEmpty(t, got[0].ID, "an id is assigned at write time")
	assert.Equal(t, 0, got[1].Position)
	assert.Equal(t, 1, got[2].Position)

	b0 := got[1]
	assert.Equal(t, domain.ContentDreamExample, b0.ContentType)
	assert.Equal(t, []string{"water", "shadow"}, b0.Themes)
	assert.Equal(t, []float32{1, 0}, b0.Embedding)
	assert.Equal(t, 0, b0.StartOffset)
	assert.Equal(t, 90, b0.EndOffset)
	assert.InDelta(t, 0.6, b0.Confidence.Overall, 1e-9)
	assert.False(t, b0.CreatedAt.IsZero())

	limited, err := s.ListChunks(ctx, driven.ChunkFilter{Source: "A", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func testInsertRejectsIncomplete(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	good := Chunk("s", "src", 0, []float32{1, 0}, domain.ContentTheory)
	bad := Chunk("s", "src", 1, nil, domain.ContentTheory)

	err := s.InsertChunks(ctx, []domain.Chunk{good, bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := s.ListChunks(ctx, driven.ChunkFilter{})
	require.NoError(t, err)
	assert.Empty(t, got, "a rejected batch writes nothing")
}

func testInsertRejectsDimensionMismatch(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{Chunk("s", "src", 0, []float32{1, 0}, domain.ContentTheory)}))

	err := s.InsertChunks(ctx, []domain.Chunk{Chunk("s", "src", 1, []float32{1, 0, 0}, domain.ContentTheory)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.SimilaritySearch(ctx, domain.SimilarityQuery{Scope: "s", Embedding: []float32{1, 0, 0}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func testInsertRejectsDuplicatePosition(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	first := Chunk("s", "src", 0, []float32{1, 0}, domain.ContentTheory)
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{first}))

	again := first
	again.ID = "another-id"
	assert.Error(t, s.InsertChunks(ctx, []domain.Chunk{again}))
}

func testSimilaritySearch(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		Chunk("p", "src", 0, []float32{1, 0}, domain.ContentTheory),
		Chunk("p", "src", 1, []float32{0.8, 0.6}, domain.ContentTheory),
		Chunk("p", "src", 2, []float32{0, 1}, domain.ContentTheory),
		Chunk("q", "src", 0, []float32{1, 0}, domain.ContentTheory),
	}))

	hits, err := s.SimilaritySearch(ctx, domain.SimilarityQuery{
		Scope: "p", Embedding: []float32{1, 0}, Threshold: 0.5, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p-src-0", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "p-src-1", hits[1].Chunk.ID)
	assert.InDelta(t, 0.8, hits[1].Similarity, 1e-6)

	hits, err = s.SimilaritySearch(ctx, domain.SimilarityQuery{Scope: "p", Embedding: []float32{1, 0}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = s.SimilaritySearch(ctx, domain.SimilarityQuery{Scope: "p"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testSimilaritySearchFilter(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		Chunk("p", "Dreams", 0, []float32{1, 0}, domain.ContentTheory, "water"),
		Chunk("p", "Dreams", 1, []float32{1, 0.1}, domain.ContentDreamExample, "flying"),
		Chunk("p", "Symbols", 0, []float32{1, 0.2}, domain.ContentDreamExample, "water", "flying"),
	}))

	search := func(f *domain.MetadataFilter) []string {
		hits, err := s.SimilaritySearch(ctx, domain.SimilarityQuery{Scope: "p", Embedding: []float32{1, 0}, Filter: f})
		require.NoError(t, err)
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.Chunk.ID
		}
		return ids
	}

	assert.Equal(t, []string{"p-Dreams-1", "p-Symbols-0"},
		search(&domain.MetadataFilter{ContentTypes: []domain.ContentType{domain.ContentDreamExample}}))
	assert.Equal(t, []string{"p-Dreams-0", "p-Symbols-0"},
		search(&domain.MetadataFilter{Themes: []string{"water"}}))
	assert.Equal(t, []string{"p-Symbols-0"},
		search(&domain.MetadataFilter{Sources: []string{"Symbols"}, Themes: []string{"flying"}}))
	assert.Len(t, search(nil), 3)
}

func testExistingPositions(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		Chunk("p", "src", 0, []float32{1, 0}, domain.ContentTheory),
		Chunk("p", "src", 2, []float32{1, 0}, domain.ContentTheory),
		Chunk("p", "other", 1, []float32{1, 0}, domain.ContentTheory),
	}))

	got, err := s.ExistingPositions(ctx, "p", "src")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{0: true, 2: true}, got)

	got, err = s.ExistingPositions(ctx, "q", "src")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testThemes(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	themes := []domain.Theme{
		{Code: "water", Label: "Water", Description: "Rivers and rain", Concepts: []string{"emotion"}, Embedding: []float32{1, 0}},
		{Code: "flying", Label: "Flying", Embedding: []float32{0, 1}},
		{Code: "anima", Label: "Anima", Personas: []string{"jungian"}},
	}
	require.NoError(t, s.SaveThemes(ctx, themes))
	assert.ErrorIs(t, s.SaveThemes(ctx, []domain.Theme{{Code: "Bad Code", Label: "x"}}), domain.ErrInvalidInput)

	listed, err := s.ListThemes(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "anima", listed[0].Code)
	assert.Equal(t, []string{"jungian"}, listed[0].Personas)
	assert.Equal(t, []string{"emotion"}, listed[2].Concepts)

	vec, err := s.GetThemeEmbedding(ctx, "water")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	_, err = s.GetThemeEmbedding(ctx, "anima")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetThemeEmbedding(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	matches, err := s.SearchThemes(ctx, []float32{0.9, 0.1}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "water", matches[0].Code)

	themes[0].Description = "Oceans"
	require.NoError(t, s.SaveThemes(ctx, themes[:1]))
	listed, err = s.ListThemes(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.Equal(t, "Oceans", listed[2].Description)
}

func testUpdateClassification(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	c := Chunk("p", "src", 0, []float32{1, 0}, domain.ContentGeneral)
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{c}))

	cl := domain.Classification{
		PrimaryContentType: domain.ContentSymbol,
		Themes:             []string{"snake"},
		Concepts:           []string{"transformation"},
		Confidence:         domain.Confidence{Overall: 0.8},
	}
	audit := domain.ClassificationAudit{
		PreviousType:       domain.ContentGeneral,
		PreviousThemes:     []string{},
		PreviousConfidence: 0.6,
		NewType:            domain.ContentSymbol,
		NewThemes:          []string{"snake"},
		NewConfidence:      0.8,
		Reason:             "vocabulary update",
		CreatedAt:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.UpdateClassification(ctx, c.ID, cl, audit))

	got, err := s.ListChunks(ctx, driven.ChunkFilter{Scope: "p"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.ContentSymbol, got[0].ContentType)
	assert.Equal(t, []string{"snake"}, got[0].Themes)

	history, err := s.ClassificationHistory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotZero(t, history[0].ID)
	assert.Equal(t, c.ID, history[0].ChunkID)
	assert.Equal(t, "vocabulary update", history[0].Reason)
	assert.Equal(t, []string{"snake"}, history[0].NewThemes)
	assert.True(t, history[0].CreatedAt.Equal(audit.CreatedAt))

	err = s.UpdateClassification(ctx, "missing", cl, audit)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
