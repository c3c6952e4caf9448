// Package sparse provides a pipeline processor that attaches lexical term
// weights to chunks for hybrid retrieval.
package sparse

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/lexical"
)

// Processor fills Chunk.SparseEmbedding from the chunk content.
type Processor struct{}

// New creates a sparse weighting processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sparse"
}

// Process annotates chunks in place. Chunks that already carry weights are
// left untouched.
func (p *Processor) Process(ctx context.Context, _ *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if chunks[i].SparseEmbedding == nil {
			chunks[i].SparseEmbedding = lexical.SparseWeights(chunks[i].Content)
		}
	}
	return chunks, nil
}
