package services

import (
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/postprocessors/chunker"
)

// Ensure SegmentationService implements the interface.
var _ driving.SegmentationService = (*SegmentationService)(nil)

// SegmentationService exposes the boundary-aware segmenter directly, for
// callers that want chunks without ingesting them.
type SegmentationService struct {
	counter chunker.TokenCounter
}

// NewSegmentationService creates a segmentation service. counter is
// optional; when set, Stats also reports token totals.
func NewSegmentationService(counter chunker.TokenCounter) *SegmentationService {
	return &SegmentationService{counter: counter}
}

// Segment validates opts and cuts text into ordered segments.
func (s *SegmentationService) Segment(source, text string, opts domain.SegmentOptions) ([]domain.Segment, error) {
	sg, err := chunker.NewSegmenter(opts)
	if err != nil {
		return nil, &domain.SegmentationError{Source: source, Err: err}
	}
	segments, err := sg.Segment(source, text)
	if err != nil {
		logger.Warn("segmentation rejected %q: %v", source, err)
		return nil, err
	}
	logger.Debug("segmented %q into %d chunks", source, len(segments))
	return segments, nil
}

// Stats summarises segments.
func (s *SegmentationService) Stats(segments []domain.Segment) domain.SegmentStats {
	return chunker.ComputeStats(segments, s.counter)
}
