package driven

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// Normaliser extracts plain text from one family of file formats.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89; the plain text fallback 1-9.
	Priority() int

	// Normalise extracts the readable text of a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)
}
