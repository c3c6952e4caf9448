package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

func TestKnowledgeStore_Conformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) driven.KnowledgeStore {
		return NewKnowledgeStore()
	})
}

func TestKnowledgeStore_ReturnsCopies(t *testing.T) {
	s := NewKnowledgeStore()
	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		storetest.Chunk("p", "src", 0, []float32{1, 0}, domain.ContentTheory, "water"),
	}))

	got, err := s.ListChunks(ctx, driven.ChunkFilter{})
	require.NoError(t, err)
	got[0].Themes[0] = "mutated"
	got[0].Embedding[0] = 9

	again, err := s.ListChunks(ctx, driven.ChunkFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"water"}, again[0].Themes)
	assert.Equal(t, []float32{1, 0}, again[0].Embedding)
}
