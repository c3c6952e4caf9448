package driven

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// ChunkFilter selects stored chunks for listing.
type ChunkFilter struct {
	Scope  string
	Source string

	// Limit caps the result; zero means no limit.
	Limit int
}

// KnowledgeStore persists classified chunks, theme embeddings and
// re-classification audits, and answers similarity searches.
type KnowledgeStore interface {
	// InsertChunks writes a batch atomically. Every chunk must carry content,
	// an embedding and a classification. Chunks without an ID get one.
	// Returns ErrDimensionMismatch when a vector's size differs from the
	// collection's.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// SimilaritySearch returns chunks in scope with cosine similarity at or
	// above the threshold, passing the filter, ordered by similarity
	// descending, at most Limit.
	SimilaritySearch(ctx context.Context, q domain.SimilarityQuery) ([]domain.SimilarityHit, error)

	// SearchThemes returns themes whose embedding is similar to the vector.
	SearchThemes(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ThemeMatch, error)

	// GetThemeEmbedding returns a theme's vector, or ErrNotFound.
	GetThemeEmbedding(ctx context.Context, code string) ([]float32, error)

	// SaveThemes upserts themes with their embeddings.
	SaveThemes(ctx context.Context, themes []domain.Theme) error

	// ListThemes returns all stored themes ordered by code.
	ListThemes(ctx context.Context) ([]domain.Theme, error)

	// ListChunks returns chunks ordered by source then position.
	ListChunks(ctx context.Context, filter ChunkFilter) ([]domain.Chunk, error)

	// ExistingPositions returns the positions already stored for a source.
	ExistingPositions(ctx context.Context, scope, source string) (map[int]bool, error)

	// UpdateClassification replaces a chunk's classification and records the
	// audit row in the same transaction.
	UpdateClassification(ctx context.Context, chunkID string, cl domain.Classification, audit domain.ClassificationAudit) error

	// ClassificationHistory returns audits for a chunk, oldest first.
	ClassificationHistory(ctx context.Context, chunkID string) ([]domain.ClassificationAudit, error)

	// Close releases resources.
	Close() error
}
