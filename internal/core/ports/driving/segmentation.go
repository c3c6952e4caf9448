package driving

import "github.com/custodia-labs/reverie/internal/core/domain"

// SegmentationService cuts text into overlapping bounded chunks.
type SegmentationService interface {
	// Segment returns ordered segments. Invalid text yields a SegmentationError
	// and no segments.
	Segment(source, text string, opts domain.SegmentOptions) ([]domain.Segment, error)

	// Stats summarises a segmentation.
	Stats(segments []domain.Segment) domain.SegmentStats
}
