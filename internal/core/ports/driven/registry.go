package driven

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It keeps a priority-ordered list of normalisers per MIME type.
type NormaliserRegistry interface {
	// DetectMIMEType guesses the MIME type of a file from its path.
	DetectMIMEType(path string) string

	// Normalise extracts text using the best matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
