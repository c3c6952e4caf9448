package driving

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// ReclassificationService re-runs classification over stored chunks.
type ReclassificationService interface {
	// Reclassify updates every changed chunk in scope and writes an audit row.
	Reclassify(ctx context.Context, persona, reason string) (*domain.ReclassifyReport, error)

	// History returns the audit trail of one chunk.
	History(ctx context.Context, chunkID string) ([]domain.ClassificationAudit, error)
}
