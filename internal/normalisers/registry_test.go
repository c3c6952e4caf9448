package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

type stubNormaliser struct {
	types    []string
	priority int
	format   string
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }

func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	return &domain.ExtractedText{Text: string(raw.Content), Format: s.format}, nil
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "notes", want: "text/plain"},
		{path: "dreams.txt", want: "text/plain"},
		{path: "freud.MD", want: "text/markdown"},
		{path: "jung.markdown", want: "text/markdown"},
		{path: "/tmp/page.html", want: "text/html"},
		{path: "page.htm", want: "text/html"},
		{path: "page.xhtml", want: "application/xhtml+xml"},
		{path: "book.docx", want: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{path: "archive.reverie-unknown", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIMEType(tt.path))
		})
	}
}

func TestRegistry_PriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 5, format: "low"})
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 50, format: "high"})

	out, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/plain", Content: []byte("x")})

	require.NoError(t, err)
	assert.Equal(t, "high", out.Format)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "a.pdf", MIMEType: "application/pdf"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDefault(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/xhtml+xml",
		"text/html",
		"text/markdown",
		"text/plain",
		"text/x-markdown",
	}, r.SupportedMIMETypes())

	n, ok := r.Lookup("text/markdown")
	require.True(t, ok)
	assert.Equal(t, 50, n.Priority())

	out, err := r.Normalise(context.Background(), &domain.RawDocument{
		URI:      "flight.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Flight\n\nI was **flying**."),
	})
	require.NoError(t, err)
	assert.Equal(t, "markdown", out.Format)
	assert.Equal(t, "Flight", out.Title)
	assert.Equal(t, "Flight\n\nI was flying.", out.Text)
}
