package driven

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// PostProcessor is one stage of the segmentation pipeline.
// Processors are chained (e.g., chunking, then sparse term weighting).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a source document and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor annotates chunks, it receives and returns them.
	Process(ctx context.Context, doc *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.SourceDocument) ([]domain.Chunk, error)
}
