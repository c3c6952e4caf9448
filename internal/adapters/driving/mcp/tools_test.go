package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

func samplePassage() domain.Passage {
	return domain.Passage{
		Chunk: domain.Chunk{
			ID:          "chunk-1",
			Source:      "Man and His Symbols",
			Chapter:     "Approaching the Unconscious",
			Position:    12,
			Content:     "The shadow appears as a pursuer.",
			ContentType: domain.ContentTheory,
			Themes:      []string{"shadow"},
		},
		Score:         0.81,
		Components:    domain.ScoreComponents{Semantic: 0.7, Lexical: 0.4, Boost: 0.1},
		MatchedThemes: []string{"shadow"},
	}
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages", func(t *testing.T) {
		retrieval := &mockRetrievalService{result: &domain.RetrievalResult{
			Passages: []domain.Passage{samplePassage()},
			Analysis: domain.QueryAnalysis{Topics: []string{"shadow"}},
			Degraded: []string{domain.DegradedLexical},
		}}
		server, err := NewServer(&Ports{Retrieval: retrieval}, nil)
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{
			Query:        "a shadow followed me",
			Persona:      "jungian",
			ContentTypes: []string{"Theory"},
			BoostThemes:  []string{"shadow"},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Passages, 1)
		p := output.Passages[0]
		assert.Equal(t, "chunk-1", p.ChunkID)
		assert.Equal(t, "Man and His Symbols", p.Source)
		assert.Equal(t, 12, p.Position)
		assert.Equal(t, "theory", p.ContentType)
		assert.Equal(t, 0.81, p.Score)
		assert.Equal(t, 0.4, p.Lexical)
		assert.Equal(t, []string{"shadow"}, output.Topics)
		assert.Equal(t, []string{domain.DegradedLexical}, output.Degraded)

		q := retrieval.lastQuery
		assert.Equal(t, "jungian", q.Persona)
		require.NotNil(t, q.Filter)
		assert.Equal(t, []domain.ContentType{domain.ContentTheory}, q.Filter.ContentTypes)
		require.NotNil(t, q.Boost)
		assert.Equal(t, []string{"shadow"}, q.Boost.Themes)
		assert.Nil(t, retrieval.lastTracker, "no session means no tracker")
	})

	t.Run("session keeps its tracker across calls", func(t *testing.T) {
		retrieval := &mockRetrievalService{result: &domain.RetrievalResult{
			Passages: []domain.Passage{samplePassage()},
		}}
		server, err := NewServer(&Ports{Retrieval: retrieval}, NewSessionRegistry(4, 10))
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q", SessionID: "s1"})
		require.NoError(t, err)
		first := retrieval.lastTracker
		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q", SessionID: "s1"})
		require.NoError(t, err)

		require.NotNil(t, first)
		assert.Same(t, first, retrieval.lastTracker)
		assert.True(t, first.Seen("chunk-1"))
		assert.Nil(t, retrieval.lastQuery.Filter)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}}, nil)
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q"})

		require.NoError(t, err)
		assert.Zero(t, output.Count)
		assert.NotNil(t, output.Passages)
	})

	t.Run("returns error on unknown persona", func(t *testing.T) {
		retrieval := &mockRetrievalService{err: domain.ErrUnknownPersona}
		server, err := NewServer(&Ports{Retrieval: retrieval}, nil)
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q", Persona: "x"})

		assert.ErrorIs(t, err, domain.ErrUnknownPersona)
	})
}

func TestServer_handleClassify(t *testing.T) {
	ctx := context.Background()
	cl := domain.Classification{
		PrimaryContentType: domain.ContentDreamExample,
		Themes:             []string{"beach", "maze"},
		Concepts:           []string{"the_unconscious"},
		Confidence:         domain.Confidence{ContentType: 0.8, Themes: 0.6, Overall: 0.7},
	}

	t.Run("embeds then classifies", func(t *testing.T) {
		classifier := &mockClassificationService{result: cl}
		server, err := NewServer(&Ports{
			Retrieval:      &mockRetrievalService{},
			Classification: classifier,
			Embedder:       &mockEmbedder{vector: []float32{1, 0}},
		}, nil)
		require.NoError(t, err)

		_, output, err := server.handleClassify(ctx, nil, ClassifyInput{Text: "I walked on a beach", Persona: "jungian"})

		require.NoError(t, err)
		assert.Equal(t, "dream_example", output.ContentType)
		assert.Equal(t, []string{"beach", "maze"}, output.Themes)
		assert.Equal(t, 0.7, output.Confidence.Overall)
		assert.Equal(t, []float32{1, 0}, classifier.lastEmbedding)
		assert.Equal(t, "jungian", classifier.lastPersona)
	})

	t.Run("embedding failure falls back to lexical", func(t *testing.T) {
		classifier := &mockClassificationService{result: cl}
		server, err := NewServer(&Ports{
			Retrieval:      &mockRetrievalService{},
			Classification: classifier,
			Embedder:       &mockEmbedder{err: errors.New("timeout")},
		}, nil)
		require.NoError(t, err)

		_, _, err = server.handleClassify(ctx, nil, ClassifyInput{Text: "I walked on a beach"})

		require.NoError(t, err)
		assert.Nil(t, classifier.lastEmbedding)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Retrieval:      &mockRetrievalService{},
			Classification: &mockClassificationService{},
		}, nil)
		require.NoError(t, err)

		_, _, err = server.handleClassify(ctx, nil, ClassifyInput{Text: "  "})

		assert.Error(t, err)
	})
}

func TestServer_handleResetSession(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionRegistry(4, 10)
	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}}, sessions)
	require.NoError(t, err)

	_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q", SessionID: "s1"})
	require.NoError(t, err)

	_, output, err := server.handleResetSession(ctx, nil, ResetSessionInput{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, output.Existed)

	_, output, err = server.handleResetSession(ctx, nil, ResetSessionInput{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, output.Existed)
}
