package driving

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// ClassificationService assigns content type, themes and confidence to text.
type ClassificationService interface {
	// Classify never fails: internal errors produce FallbackClassification.
	// A nil embedding runs the lexical pass only.
	Classify(ctx context.Context, text, persona string, embedding []float32) domain.Classification
}
