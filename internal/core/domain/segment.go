package domain

import "fmt"

// Default segmentation sizes, in characters.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
	DefaultMinChunk  = 200
	DefaultMaxChunk  = 2000
)

// SegmentOptions controls how a document is cut into chunks.
type SegmentOptions struct {
	// TargetSize is the preferred chunk size T.
	TargetSize int `json:"target_size"`

	// Overlap is the maximum tail O carried into the next chunk. O < T.
	Overlap int `json:"overlap"`

	// MinSize is the smallest chunk M worth emitting. M <= T.
	MinSize int `json:"min_size"`

	// MaxSize is the paragraph size X above which a paragraph is split. X >= T.
	MaxSize int `json:"max_size"`

	RespectParagraphs bool `json:"respect_paragraphs"`
	RespectSentences  bool `json:"respect_sentences"`
}

// DefaultSegmentOptions returns the stock segmentation profile.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		TargetSize:        DefaultChunkSize,
		Overlap:           DefaultOverlap,
		MinSize:           DefaultMinChunk,
		MaxSize:           DefaultMaxChunk,
		RespectParagraphs: true,
		RespectSentences:  true,
	}
}

// Validate checks 0 <= O < T, 0 < M <= T and X >= T.
func (o SegmentOptions) Validate() error {
	switch {
	case o.TargetSize <= 0:
		return fmt.Errorf("%w: target size must be positive, got %d", ErrInvalidInput, o.TargetSize)
	case o.Overlap < 0 || o.Overlap >= o.TargetSize:
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidInput, o.Overlap, o.TargetSize)
	case o.MinSize <= 0 || o.MinSize > o.TargetSize:
		return fmt.Errorf("%w: min size %d must be in (0, %d]", ErrInvalidInput, o.MinSize, o.TargetSize)
	case o.MaxSize < o.TargetSize:
		return fmt.Errorf("%w: max size %d must be >= target size %d", ErrInvalidInput, o.MaxSize, o.TargetSize)
	}
	return nil
}

// Segment is one chunk of source text before classification.
type Segment struct {
	// Index is the sequence number within the source.
	Index int `json:"index"`

	// Start and End are character (rune) offsets into the source, [Start, End).
	Start int `json:"start"`
	End   int `json:"end"`

	Text string `json:"text"`
}

// Len returns the segment length in characters.
func (s Segment) Len() int {
	return len([]rune(s.Text))
}

// SegmentStats summarises a segmentation.
type SegmentStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`

	// Tokens is the total token count, when a token counter was configured.
	Tokens int `json:"tokens,omitempty"`
}
