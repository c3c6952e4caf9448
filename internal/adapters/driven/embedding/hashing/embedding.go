// Package hashing provides a deterministic, offline embedding service based
// on feature hashing. Vectors need no model download and no network, so the
// tool works out of the box and tests stay reproducible.
package hashing

import (
	"context"
	"maps"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/lexical"
	"github.com/custodia-labs/reverie/internal/vecmath"
)

// Ensure EmbeddingService implements the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.SparseEmbedder   = (*EmbeddingService)(nil)
)

// ModelName is reported for every hashing embedder.
const ModelName = "hashing-v1"

// Feature weights. Whole terms dominate; character trigrams give related
// word forms ("flight", "flying") some shared mass.
const (
	termWeight    = 1.0
	trigramWeight = 0.35
)

// EmbeddingService hashes stemmed terms and their character trigrams into a
// fixed number of signed buckets, then L2-normalises.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder. dims <= 0 selects
// domain.DefaultHashingDimensions.
func NewEmbeddingService(dims int) *EmbeddingService {
	if dims <= 0 {
		dims = domain.DefaultHashingDimensions
	}
	return &EmbeddingService{dimensions: dims}
}

// Embed returns the hashed vector of text. Text without indexable terms
// yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, s.dimensions)

	tf := make(map[string]int)
	for _, t := range lexical.Terms(text) {
		tf[t]++
	}
	for _, term := range slices.Sorted(maps.Keys(tf)) {
		w := termWeight * (1 + math.Log(float64(tf[term])))
		s.add(vec, "t:"+term, w)
		padded := "^" + term + "$"
		for i := 0; i+3 <= len(padded); i++ {
			s.add(vec, "g:"+padded[i:i+3], trigramWeight*w)
		}
	}
	return vecmath.Normalize(vec), nil
}

func (s *EmbeddingService) add(vec []float32, feature string, w float64) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(s.dimensions))
	if h>>63 == 1 {
		w = -w
	}
	vec[idx] += float32(w)
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EmbedSparse returns the lexical term weights of text.
func (s *EmbeddingService) EmbedSparse(ctx context.Context, text string) (map[string]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lexical.SparseWeights(text), nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
