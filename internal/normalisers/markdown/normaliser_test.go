package markdown

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
	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise(t *testing.T) {
	content := "# Dreams of Flight\r\n\r\n" +
		"Some **bold** and *italic* text with a [link](http://example.com).\n\n" +
		"- item one\n- item two\n\n" +
		"```\ncode\n```\n\n" +
		"> quoted dream"

	out, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "flight.md",
		MIMEType: "text/markdown",
		Content:  []byte(content),
	})

	require.NoError(t, err)
	assert.Equal(t, "Dreams of Flight", out.Title)
	assert.Equal(t,
		"Dreams of Flight\n\nSome bold and italic text with a link.\n\nitem one\nitem two\n\nquoted dream",
		out.Text)
	assert.Equal(t, "markdown", out.Format)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "First", extractTitle("intro\n## Second level\n# First\n# Later"))
	assert.Empty(t, extractTitle("## Only a subheading"))
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "inline code", in: "run `reverie ingest` now", want: "run reverie ingest now"},
		{name: "image", in: "before ![alt](img.png) after", want: "before  after"},
		{name: "footnote", in: "a claim[^1]", want: "a claim"},
		{name: "underscore emphasis", in: "a _quiet_ dream", want: "a quiet dream"},
		{name: "snake case kept", in: "being_chased theme", want: "being_chased theme"},
		{name: "numbered list", in: "1. first\n2. second", want: "first\nsecond"},
		{name: "rule", in: "above\n\n---\n\nbelow", want: "above\n\nbelow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdown(tt.in))
		})
	}
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
