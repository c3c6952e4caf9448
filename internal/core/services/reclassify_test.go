package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

func fixedClassification(ct domain.ContentType, themes ...string) stubClassifier {
	cl := domain.FallbackClassification()
	cl.Fallback = false
	cl.PrimaryContentType = ct
	cl.Themes = themes
	cl.Confidence = domain.Confidence{ContentType: 0.6, Themes: 0.5, Overall: 0.55}
	return stubClassifier{cl: cl}
}

// ingestWith stores the test document classified by cl and returns its chunks.
func ingestWith(t *testing.T, store *flakyStore, cl stubClassifier) []domain.Chunk {
	t.Helper()
	embedder := newStubEmbedder()
	themes := newTestThemes(t, store.KnowledgeStore, embedder)
	ingest := NewIngestionService(newRegistry(), embedder, cl, store, themes, testPersonas(), domain.IngestSettings{})
	_, err := ingest.Ingest(context.Background(), testDocument())
	require.NoError(t, err)

	chunks, err := store.ListChunks(context.Background(), driven.ChunkFilter{Scope: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	return chunks
}

func TestReclassificationService_Reclassify(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{KnowledgeStore: memory.NewKnowledgeStore()}
	chunks := ingestWith(t, store, fixedClassification(domain.ContentDreamExample, "flying"))
	themes := newTestThemes(t, store.KnowledgeStore, newStubEmbedder())

	service := NewReclassificationService(
		fixedClassification(domain.ContentDreamExample, "maze", "not_a_theme"), store, themes, testPersonas())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return at }

	report, err := service.Reclassify(ctx, "test", "vocabulary update")

	require.NoError(t, err)
	assert.Equal(t, "test", report.Scope)
	assert.Equal(t, len(chunks), report.Examined)
	assert.Equal(t, len(chunks), report.Changed)
	assert.Zero(t, report.Errors)

	history, err := service.History(ctx, chunks[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	audit := history[0]
	assert.Equal(t, []string{"flying"}, audit.PreviousThemes)
	assert.Equal(t, []string{"maze"}, audit.NewThemes)
	assert.Equal(t, "vocabulary update", audit.Reason)
	assert.Equal(t, at, audit.CreatedAt)

	updated, err := store.ListChunks(ctx, driven.ChunkFilter{Scope: "test", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"maze"}, updated[0].Themes)
	assert.Equal(t, themes.ConceptsFor([]string{"maze"}), updated[0].Concepts)

	t.Run("second pass changes nothing", func(t *testing.T) {
		again, err := service.Reclassify(ctx, "test", "vocabulary update")
		require.NoError(t, err)
		assert.Zero(t, again.Changed)
		assert.Equal(t, len(chunks), again.Unchanged)

		history, err := service.History(ctx, chunks[0].ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

func TestReclassificationService_Reclassify_UpdateFailureContinues(t *testing.T) {
	store := &flakyStore{KnowledgeStore: memory.NewKnowledgeStore()}
	chunks := ingestWith(t, store, fixedClassification(domain.ContentDreamExample, "flying"))
	store.failUpdate = chunks[0].ID

	service := NewReclassificationService(
		fixedClassification(domain.ContentTheory), store, nil, testPersonas())

	report, err := service.Reclassify(context.Background(), "test", "")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, len(chunks)-1, report.Changed)
}

func TestReclassificationService_Reclassify_Rejects(t *testing.T) {
	service := NewReclassificationService(
		fixedClassification(domain.ContentTheory), memory.NewKnowledgeStore(), nil, testPersonas())

	_, err := service.Reclassify(context.Background(), "behaviourist", "")
	assert.ErrorIs(t, err, domain.ErrUnknownPersona)

	_, err = service.History(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReclassificationService_Reclassify_Canceled(t *testing.T) {
	store := &flakyStore{KnowledgeStore: memory.NewKnowledgeStore()}
	ingestWith(t, store, fixedClassification(domain.ContentDreamExample, "flying"))
	service := NewReclassificationService(
		fixedClassification(domain.ContentTheory), store, nil, testPersonas())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := service.Reclassify(ctx, "test", "")

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Examined)
}
