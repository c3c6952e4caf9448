package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

func testDocument() domain.SourceDocument {
	return domain.SourceDocument{
		Source:  "Quiet Alleys",
		Chapter: "One",
		Persona: "test",
		Text:    threeParagraphText(),
	}
}

func TestIngestionService_Ingest_ThreeParagraphDocument(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{Workers: 3, BatchSize: 2})
	ctx := context.Background()

	report, err := f.service.Ingest(ctx, testDocument())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Segments, 5)
	assert.LessOrEqual(t, report.Segments, 7)
	assert.Equal(t, report.Segments, report.Written)
	assert.Equal(t, "test", report.Scope)
	assert.Empty(t, report.Failed)
	assert.Equal(t, report.Segments, report.Stats.Count)

	chunks, err := f.store.ListChunks(ctx, driven.ChunkFilter{Scope: "test"})
	require.NoError(t, err)
	require.Len(t, chunks, report.Written)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, "Quiet Alleys", c.Source)
		assert.Equal(t, "One", c.Chapter)
		assert.NotEmpty(t, c.ID)
		assert.Len(t, c.Embedding, testDims)
		assert.True(t, c.ContentType.IsValid())
		assert.NotEmpty(t, c.SparseEmbedding)
		n := len([]rune(c.Content))
		assert.GreaterOrEqual(t, n, 100)
		assert.LessOrEqual(t, n, 600)
		if i > 0 {
			assert.Greater(t, c.StartOffset, chunks[i-1].StartOffset)
		}
	}
	assert.True(t, strings.HasPrefix(chunks[0].Content, "Sentence 01 in part 1"))
}

func TestIngestionService_Ingest_RerunSkipsStoredChunks(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{Workers: 2, BatchSize: 4})
	ctx := context.Background()

	first, err := f.service.Ingest(ctx, testDocument())
	require.NoError(t, err)
	calls := f.embedder.Calls()

	second, err := f.service.Ingest(ctx, testDocument())

	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, first.Written, second.Skipped)
	assert.Equal(t, calls, f.embedder.Calls(), "stored chunks must not be embedded again")
}

func TestIngestionService_Ingest_EmbeddingFailureDropsOnlyThatChunk(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{Workers: 2, BatchSize: 3})
	f.embedder.failIf = func(text string) bool {
		return strings.Contains(text, "Sentence 10 in part 2")
	}

	report, err := f.service.Ingest(context.Background(), testDocument())

	require.NoError(t, err)
	require.NotEmpty(t, report.Failed)
	assert.Equal(t, report.Segments, report.Written+len(report.Failed))
	for _, fail := range report.Failed {
		assert.Contains(t, fail.Error, "Quiet Alleys")
		assert.Contains(t, fail.Error, errEmbedDown.Error())
		assert.NotContains(t, fail.Error, "Sentence 10", "chunk text must not leak into errors")
	}
}

func TestIngestionService_Ingest_StoreRetry(t *testing.T) {
	t.Run("one rejection is retried", func(t *testing.T) {
		f := newIngestFixture(t, domain.IngestSettings{Workers: 2, BatchSize: 100})
		f.store.failInserts = 1

		report, err := f.service.Ingest(context.Background(), testDocument())

		require.NoError(t, err)
		assert.Equal(t, report.Segments, report.Written)
	})

	t.Run("second rejection is fatal for the batch", func(t *testing.T) {
		f := newIngestFixture(t, domain.IngestSettings{Workers: 2, BatchSize: 100})
		f.store.failInserts = 2

		report, err := f.service.Ingest(context.Background(), testDocument())

		require.ErrorIs(t, err, domain.ErrStoreWrite)
		var writeErr *domain.StoreWriteError
		require.ErrorAs(t, err, &writeErr)
		assert.Equal(t, "Quiet Alleys", writeErr.Source)
		assert.Equal(t, 0, writeErr.FirstPosition)
		assert.Equal(t, report.Segments, writeErr.Count)
		assert.Equal(t, 0, report.Written)
	})
}

func TestIngestionService_Ingest_InterruptedBetweenBatches(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{Workers: 1, BatchSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.embedder.onCall = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	report, err := f.service.Ingest(ctx, testDocument())

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 2, report.Written, "only the batch finished before cancellation is written")

	f.embedder.onCall = nil
	resumed, err := f.service.Ingest(context.Background(), testDocument())
	require.NoError(t, err)
	assert.Equal(t, 2, resumed.Skipped)
	assert.Equal(t, resumed.Segments-2, resumed.Written)
}

func TestIngestionService_Ingest_DropsUnknownThemes(t *testing.T) {
	store := memory.NewKnowledgeStore()
	embedder := newStubEmbedder()
	themes := newTestThemes(t, store, embedder)
	cl := domain.FallbackClassification()
	cl.Fallback = false
	cl.Themes = []string{"flying", "not_a_theme"}
	cl.Concepts = []string{"freedom", "orphaned_concept"}
	service := NewIngestionService(newRegistry(), embedder, stubClassifier{cl: cl},
		store, themes, testPersonas(), domain.IngestSettings{})

	_, err := service.Ingest(context.Background(), testDocument())
	require.NoError(t, err)

	chunks, err := store.ListChunks(context.Background(), driven.ChunkFilter{Scope: "test", Limit: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"flying"}, chunks[0].Themes)
	assert.Equal(t, themes.ConceptsFor([]string{"flying"}), chunks[0].Concepts)
	assert.NotContains(t, chunks[0].Concepts, "orphaned_concept")
}

func TestKnownThemes(t *testing.T) {
	themes := newTestThemes(t, memory.NewKnowledgeStore(), newStubEmbedder())
	cl := domain.FallbackClassification()
	cl.Themes = []string{"flying", "maze"}
	cl.Concepts = []string{"as", "classified"}

	t.Run("all known keeps concepts", func(t *testing.T) {
		got := knownThemes(themes, "test", cl)
		assert.Equal(t, []string{"flying", "maze"}, got.Themes)
		assert.Equal(t, []string{"as", "classified"}, got.Concepts)
	})

	t.Run("dropped theme rederives concepts", func(t *testing.T) {
		withUnknown := cl
		withUnknown.Themes = []string{"not_a_theme", "maze"}
		got := knownThemes(themes, "test", withUnknown)
		assert.Equal(t, []string{"maze"}, got.Themes)
		assert.Equal(t, themes.ConceptsFor([]string{"maze"}), got.Concepts)
	})

	t.Run("nil lookup", func(t *testing.T) {
		withUnknown := cl
		withUnknown.Themes = []string{"not_a_theme"}
		assert.Equal(t, withUnknown, knownThemes(nil, "test", withUnknown))
	})
}

func TestIngestionService_Ingest_Rejects(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	ctx := context.Background()

	t.Run("no source", func(t *testing.T) {
		doc := testDocument()
		doc.Source = "  "
		_, err := f.service.Ingest(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown persona", func(t *testing.T) {
		doc := testDocument()
		doc.Persona = "behaviourist"
		_, err := f.service.Ingest(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrUnknownPersona)
	})

	t.Run("binary text", func(t *testing.T) {
		doc := testDocument()
		doc.Text = "dream\x00journal"
		report, err := f.service.Ingest(ctx, doc)
		var segErr *domain.SegmentationError
		require.ErrorAs(t, err, &segErr)
		assert.Equal(t, "Quiet Alleys", segErr.Source)
		assert.Nil(t, report)
	})
}

func TestIngestionService_Ingest_DefaultsToPersonaScope(t *testing.T) {
	f := newIngestFixture(t, domain.IngestSettings{})
	doc := testDocument()
	doc.Persona = "jungian"
	doc.Text = "I dreamed of a snake by the river. It spoke to me in my mother's voice."

	report, err := f.service.Ingest(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "jungian", report.Scope)
	assert.Equal(t, 1, report.Written)
}
