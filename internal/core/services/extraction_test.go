package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/normalisers"
)

func TestExtractionService_Extract(t *testing.T) {
	svc := NewExtractionService(normalisers.Default())

	tests := []struct {
		name   string
		path   string
		body   string
		title  string
		text   string
		format string
	}{
		{
			name: "plain text", path: "dreams.txt",
			body: "I was falling.\r\n\r\nThen I woke.", text: "I was falling.\n\nThen I woke.", format: "plaintext",
		},
		{
			name: "markdown", path: "notes/flight.md",
			body: "# Flight\n\nI was *flying*.", title: "Flight", text: "Flight\n\nI was flying.", format: "markdown",
		},
		{
			name: "html", path: "page.html",
			body: "<title>Shadow</title><p>pursuer</p>", title: "Shadow", text: "pursuer", format: "html",
		},
		{
			name: "no extension", path: "README",
			body: "just text", text: "just text", format: "plaintext",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Extract(context.Background(), tt.path, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.title, out.Title)
			assert.Equal(t, tt.text, out.Text)
			assert.Equal(t, tt.format, out.Format)
		})
	}
}

func TestExtractionService_Unsupported(t *testing.T) {
	svc := NewExtractionService(normalisers.Default())

	_, err := svc.Extract(context.Background(), "scan.reverie-unknown", []byte{0x00})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "scan.reverie-unknown")
}

func TestExtractionService_InvalidText(t *testing.T) {
	svc := NewExtractionService(normalisers.Default())

	_, err := svc.Extract(context.Background(), "broken.txt", []byte{0xff, 0xfe})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
