// Package chunker provides the boundary-aware text segmenter and its
// pipeline processor.
package chunker

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/logger"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultOverlap

// Processor segments a source document into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	opts    domain.SegmentOptions
	counter TokenCounter
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.opts.TargetSize = size
		}
	}
}

// WithOverlap sets the maximum overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.opts.Overlap = overlap
		}
	}
}

// WithMinChunk sets the minimum chunk size in characters.
func WithMinChunk(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.opts.MinSize = size
		}
	}
}

// WithMaxChunk sets the maximum chunk size in characters.
func WithMaxChunk(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.opts.MaxSize = size
		}
	}
}

// WithTokenCounter enables token statistics.
func WithTokenCounter(c TokenCounter) Option {
	return func(p *Processor) {
		p.counter = c
	}
}

// New creates a new chunker processor with the given options.
// Out-of-range combinations are repaired rather than rejected.
func New(opts ...Option) *Processor {
	p := &Processor{opts: domain.DefaultSegmentOptions()}

	for _, opt := range opts {
		opt(p)
	}

	if p.opts.Overlap >= p.opts.TargetSize {
		p.opts.Overlap = p.opts.TargetSize / 4
	}
	if p.opts.MinSize > p.opts.TargetSize {
		p.opts.MinSize = p.opts.TargetSize
	}
	if p.opts.MaxSize < p.opts.TargetSize {
		p.opts.MaxSize = p.opts.TargetSize
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Options returns the effective segmentation options.
func (p *Processor) Options() domain.SegmentOptions {
	return p.opts
}

// Process segments the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from document text.
// Segmentation is all-or-nothing: on error no chunks are returned.
func (p *Processor) Process(_ context.Context, doc *domain.SourceDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	sg, err := NewSegmenter(p.opts)
	if err != nil {
		return nil, err
	}
	segments, err := sg.Segment(doc.Source, doc.Text)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}

	st := ComputeStats(segments, p.counter)
	logger.Debug("chunker: %q -> %d chunks (avg %.0f, min %d, max %d)",
		doc.Source, st.Count, st.Average, st.Min, st.Max)

	chunks := make([]domain.Chunk, len(segments))
	for i, s := range segments {
		chunks[i] = domain.Chunk{
			ID:          uuid.New().String(),
			Scope:       doc.Scope,
			Source:      doc.Source,
			Chapter:     doc.Chapter,
			Position:    s.Index,
			StartOffset: s.Start,
			EndOffset:   s.End,
			Content:     s.Text,
		}
	}
	return chunks, nil
}
