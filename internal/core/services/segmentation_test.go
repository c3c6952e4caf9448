package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func smallOptions() domain.SegmentOptions {
	opts := domain.DefaultSegmentOptions()
	opts.TargetSize = 200
	opts.Overlap = 40
	opts.MinSize = 50
	opts.MaxSize = 300
	return opts
}

func TestSegmentationService_Segment(t *testing.T) {
	service := NewSegmentationService(nil)
	para := strings.Repeat("The sea rose over the sleeping town. ", 8)
	text := para + "\n\n" + para + "\n\n" + para

	segments, err := service.Segment("book", text, smallOptions())

	require.NoError(t, err)
	require.NotEmpty(t, segments)
	for i, s := range segments {
		assert.Equal(t, i, s.Index)
		assert.Less(t, s.Start, s.End)
		if i > 0 {
			assert.Greater(t, s.Start, segments[i-1].Start)
		}
	}
}

func TestSegmentationService_Segment_Empty(t *testing.T) {
	segments, err := NewSegmentationService(nil).Segment("book", "  \n\n ", smallOptions())

	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestSegmentationService_Segment_Rejects(t *testing.T) {
	service := NewSegmentationService(nil)

	t.Run("invalid options", func(t *testing.T) {
		opts := smallOptions()
		opts.Overlap = opts.TargetSize

		segments, err := service.Segment("book", "Some text.", opts)

		var segErr *domain.SegmentationError
		require.ErrorAs(t, err, &segErr)
		assert.Equal(t, "book", segErr.Source)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.Nil(t, segments)
	})

	t.Run("nul bytes", func(t *testing.T) {
		segments, err := service.Segment("book", "dream\x00text", smallOptions())

		var segErr *domain.SegmentationError
		require.ErrorAs(t, err, &segErr)
		assert.Nil(t, segments)
	})
}

func TestSegmentationService_Stats(t *testing.T) {
	segments := []domain.Segment{
		{Index: 0, Text: "one two three"},
		{Index: 1, Text: "four five"},
	}

	st := NewSegmentationService(wordCounter{}).Stats(segments)

	assert.Equal(t, 2, st.Count)
	assert.Equal(t, 9, st.Min)
	assert.Equal(t, 13, st.Max)
	assert.InDelta(t, 11, st.Average, 1e-9)
	assert.Equal(t, 5, st.Tokens)
}
