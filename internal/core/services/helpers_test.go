package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/postprocessors"
	"github.com/custodia-labs/reverie/internal/postprocessors/classifier"
)

const testDims = 64

var errEmbedDown = errors.New("embedding backend down")

// stubEmbedder wraps the hashing embedder with failure injection.
type stubEmbedder struct {
	*hashing.EmbeddingService

	mu     sync.Mutex
	calls  int
	failIf func(text string) bool
	onCall func(n int)
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{EmbeddingService: hashing.NewEmbeddingService(testDims)}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	n := e.calls
	e.mu.Unlock()

	if e.onCall != nil {
		e.onCall(n)
	}
	if e.failIf != nil && e.failIf(text) {
		return nil, errEmbedDown
	}
	return e.EmbeddingService.Embed(ctx, text)
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// flakyStore rejects the first failInserts batches and can fail searches
// or the update of one chunk.
type flakyStore struct {
	*memory.KnowledgeStore

	mu          sync.Mutex
	failInserts int
	inserts     int
	failSearch  bool
	failUpdate  string
}

func (s *flakyStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	s.inserts++
	fail := s.inserts <= s.failInserts
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.KnowledgeStore.InsertChunks(ctx, chunks)
}

func (s *flakyStore) SimilaritySearch(ctx context.Context, q domain.SimilarityQuery) ([]domain.SimilarityHit, error) {
	if s.failSearch {
		return nil, errors.New("connection refused")
	}
	return s.KnowledgeStore.SimilaritySearch(ctx, q)
}

func (s *flakyStore) UpdateClassification(
	ctx context.Context, chunkID string, cl domain.Classification, audit domain.ClassificationAudit,
) error {
	if chunkID == s.failUpdate {
		return errors.New("database is locked")
	}
	return s.KnowledgeStore.UpdateClassification(ctx, chunkID, cl, audit)
}

// stubClassifier returns a fixed classification.
type stubClassifier struct {
	cl domain.Classification
}

func (c stubClassifier) Classify(context.Context, string, string, []float32) domain.Classification {
	return c.cl
}

func testPersonas() map[string]domain.PersonaProfile {
	personas := domain.DefaultPersonas()
	personas["test"] = domain.PersonaProfile{
		ID:                  "test",
		Scope:               "test",
		SimilarityThreshold: 0.1,
		MaxResults:          3,
		ChunkSize:           500,
		Overlap:             100,
		MinChunk:            100,
		MaxChunk:            600,
		TheoreticalDiscount: domain.DefaultTheoreticalDiscount,
	}
	return personas
}

func newRegistry() *postprocessors.Registry {
	r := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(r)
	return r
}

func newTestThemes(t *testing.T, store *memory.KnowledgeStore, embedder *stubEmbedder) *ThemeService {
	t.Helper()
	themes, err := NewThemeService("", store, embedder)
	require.NoError(t, err)
	return themes
}

type ingestFixture struct {
	store    *flakyStore
	embedder *stubEmbedder
	themes   *ThemeService
	service  *IngestionService
}

func newIngestFixture(t *testing.T, cfg domain.IngestSettings) *ingestFixture {
	t.Helper()
	store := &flakyStore{KnowledgeStore: memory.NewKnowledgeStore()}
	embedder := newStubEmbedder()
	themes := newTestThemes(t, store.KnowledgeStore, embedder)
	personas := testPersonas()
	service := NewIngestionService(newRegistry(), embedder,
		classifier.New(themes, classifier.WithPersonas(personas)),
		store, themes, personas, cfg)
	service.SetStoreRetryBackoff(0)
	return &ingestFixture{store: store, embedder: embedder, themes: themes, service: service}
}

// threeParagraphText is about 3000 characters in three paragraphs.
func threeParagraphText() string {
	var paras []string
	for p := 1; p <= 3; p++ {
		var sentences []string
		for i := 1; i <= 20; i++ {
			sentences = append(sentences, fmt.Sprintf("Sentence %02d in part %d walked along a quiet alley.", i, p))
		}
		paras = append(paras, strings.Join(sentences, " "))
	}
	return strings.Join(paras, "\n\n")
}
