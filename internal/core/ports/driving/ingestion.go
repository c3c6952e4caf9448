package driving

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// IngestionService runs the write path for whole documents.
type IngestionService interface {
	// Ingest segments, embeds, classifies and stores one document.
	// Segmentation and store failures are returned; per-chunk embedding
	// failures are listed in the report.
	Ingest(ctx context.Context, doc domain.SourceDocument) (*domain.IngestReport, error)
}
