package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/vecmath"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

type positionKey struct {
	scope, source string
	position      int
}

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
// Similarity search is a linear scan.
type KnowledgeStore struct {
	mu        sync.RWMutex
	chunks    map[string]domain.Chunk
	positions map[positionKey]string
	themes    map[string]domain.Theme
	audits    map[string][]domain.ClassificationAudit
	auditSeq  int64
	dims      int
}

// NewKnowledgeStore creates an empty in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		chunks:    make(map[string]domain.Chunk),
		positions: make(map[positionKey]string),
		themes:    make(map[string]domain.Theme),
		audits:    make(map[string][]domain.ClassificationAudit),
	}
}

// InsertChunks validates the whole batch before writing any of it.
func (s *KnowledgeStore) InsertChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	batch := make(map[positionKey]bool, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if err := c.ValidateForWrite(dims); err != nil {
			return err
		}
		dims = len(c.Embedding)
		key := positionKey{c.Scope, c.Source, c.Position}
		if _, exists := s.positions[key]; exists || batch[key] {
			return fmt.Errorf("%w: %q#%d already stored in %q", domain.ErrInvalidInput, c.Source, c.Position, c.Scope)
		}
		batch[key] = true
	}

	now := time.Now()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.chunks[c.ID] = cloneChunk(c)
		s.positions[positionKey{c.Scope, c.Source, c.Position}] = c.ID
	}
	s.dims = dims
	return nil
}

// SimilaritySearch scans the scope and ranks by cosine similarity.
func (s *KnowledgeStore) SimilaritySearch(_ context.Context, q domain.SimilarityQuery) ([]domain.SimilarityHit, error) {
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dims > 0 && len(q.Embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, len(q.Embedding), s.dims)
	}

	var hits []domain.SimilarityHit
	for id := range s.chunks {
		c := s.chunks[id]
		if q.Scope != "" && c.Scope != q.Scope {
			continue
		}
		if !q.Filter.Matches(&c) {
			continue
		}
		sim := vecmath.Cosine(q.Embedding, c.Embedding)
		if sim < q.Threshold {
			continue
		}
		hits = append(hits, domain.SimilarityHit{Chunk: cloneChunk(c), Similarity: sim})
	}
	domain.SortHits(hits)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// SearchThemes ranks embedded themes by cosine similarity to vector.
func (s *KnowledgeStore) SearchThemes(_ context.Context, vector []float32, threshold float64, limit int) ([]domain.ThemeMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []domain.ThemeMatch
	for code, t := range s.themes {
		if len(t.Embedding) != len(vector) {
			continue
		}
		if sim := vecmath.Cosine(vector, t.Embedding); sim >= threshold {
			matches = append(matches, domain.ThemeMatch{Code: code, Similarity: sim})
		}
	}
	domain.SortThemeMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetThemeEmbedding returns the stored vector for code.
func (s *KnowledgeStore) GetThemeEmbedding(_ context.Context, code string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.themes[code]
	if !ok || len(t.Embedding) == 0 {
		return nil, fmt.Errorf("theme %q embedding: %w", code, domain.ErrNotFound)
	}
	return slices.Clone(t.Embedding), nil
}

// SaveThemes upserts themes by code.
func (s *KnowledgeStore) SaveThemes(_ context.Context, themes []domain.Theme) error {
	for _, t := range themes {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range themes {
		t.Embedding = slices.Clone(t.Embedding)
		s.themes[t.Code] = t
	}
	return nil
}

// ListThemes returns stored themes ordered by code.
func (s *KnowledgeStore) ListThemes(_ context.Context) ([]domain.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Theme, 0, len(s.themes))
	for _, t := range s.themes {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.Theme) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

// ListChunks returns chunks ordered by source then position.
func (s *KnowledgeStore) ListChunks(_ context.Context, filter driven.ChunkFilter) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, c := range s.chunks {
		if filter.Scope != "" && c.Scope != filter.Scope {
			continue
		}
		if filter.Source != "" && c.Source != filter.Source {
			continue
		}
		out = append(out, cloneChunk(c))
	}
	domain.SortChunks(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ExistingPositions returns the stored positions of one source in a scope.
func (s *KnowledgeStore) ExistingPositions(_ context.Context, scope, source string) (map[int]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]bool)
	for key := range s.positions {
		if key.scope == scope && key.source == source {
			out[key.position] = true
		}
	}
	return out, nil
}

// UpdateClassification replaces a chunk's classification and appends the
// audit row.
func (s *KnowledgeStore) UpdateClassification(
	_ context.Context, chunkID string, cl domain.Classification, audit domain.ClassificationAudit,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[chunkID]
	if !ok {
		return fmt.Errorf("chunk %q: %w", chunkID, domain.ErrNotFound)
	}
	c.ApplyClassification(cl)
	s.chunks[chunkID] = c

	s.auditSeq++
	audit.ID = s.auditSeq
	audit.ChunkID = chunkID
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	s.audits[chunkID] = append(s.audits[chunkID], audit)
	return nil
}

// ClassificationHistory returns a chunk's audits, oldest first.
func (s *KnowledgeStore) ClassificationHistory(_ context.Context, chunkID string) ([]domain.ClassificationAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.chunks[chunkID]; !ok {
		return nil, fmt.Errorf("chunk %q: %w", chunkID, domain.ErrNotFound)
	}
	return slices.Clone(s.audits[chunkID]), nil
}

// Close is a no-op.
func (s *KnowledgeStore) Close() error {
	return nil
}

func cloneChunk(c domain.Chunk) domain.Chunk {
	c.Themes = slices.Clone(c.Themes)
	c.Concepts = slices.Clone(c.Concepts)
	c.Symbols = slices.Clone(c.Symbols)
	c.Keywords = slices.Clone(c.Keywords)
	c.Embedding = slices.Clone(c.Embedding)
	return c
}
