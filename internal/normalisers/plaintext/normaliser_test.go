package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

func TestNormaliser_Interface(t *testing.T) {
	var n driven.Normaliser = New()
	assert.Contains(t, n.SupportedMIMETypes(), "text/plain")
	assert.Contains(t, n.SupportedMIMETypes(), "text/markdown")
	assert.Equal(t, 5, n.Priority())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unchanged", content: "I was flying.\n\nThen I fell.", want: "I was flying.\n\nThen I fell."},
		{name: "crlf", content: "one\r\ntwo\r\n", want: "one\ntwo\n"},
		{name: "bom", content: "\ufeffdream", want: "dream"},
		{name: "empty", content: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().Normalise(context.Background(), &domain.RawDocument{
				MIMEType: "text/plain",
				Content:  []byte(tt.content),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
			assert.Empty(t, out.Title)
			assert.Equal(t, "plaintext", out.Format)
		})
	}
}

func TestNormalise_InvalidInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), &domain.RawDocument{Content: []byte{0xff, 0xfe, 0xfd}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
