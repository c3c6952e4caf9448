package driving

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// ExtractionService turns source files into plain text for ingestion.
type ExtractionService interface {
	// Extract detects the format of path and returns its text. Formats no
	// normaliser handles yield ErrUnsupportedType.
	Extract(ctx context.Context, path string, content []byte) (*domain.ExtractedText, error)
}
