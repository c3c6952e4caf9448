package driving

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// RetrievalService ranks stored passages for a query.
type RetrievalService interface {
	// Retrieve returns ranked passages. An empty result is not an error.
	// When tracker is non-nil, already-seen chunks are excluded and the
	// returned ids are recorded.
	Retrieve(ctx context.Context, q domain.RetrievalQuery, tracker *domain.RepetitionTracker) (*domain.RetrievalResult, error)

	// Analyse runs only the query pre-analysis.
	Analyse(text string, maxResults int) domain.QueryAnalysis
}
