package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

func normalise(t *testing.T, content string) *domain.ExtractedText {
	t.Helper()
	out, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "page.html",
		MIMEType: "text/html",
		Content:  []byte(content),
	})
	require.NoError(t, err)
	return out
}

func TestNormaliser_Interface(t *testing.T) {
	var n driven.Normaliser = New()
	assert.ElementsMatch(t, []string{"text/html", "application/xhtml+xml"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_Document(t *testing.T) {
	out := normalise(t, `<!DOCTYPE html>
<html>
<head>
  <title>Jung &amp; the Shadow</title>
  <style>body { color: red; }</style>
</head>
<body>
  <script>alert("x")</script>
  <!-- navigation -->
  <h1>The Shadow</h1>
  <p>The shadow is the   part of the psyche we disown.</p>
  <p>It often appears as a pursuer &lt;in dreams&gt;.</p>
</body>
</html>`)

	assert.Equal(t, "Jung & the Shadow", out.Title)
	assert.Equal(t, "The Shadow\n\nThe shadow is the part of the psyche we disown.\n\nIt often appears as a pursuer <in dreams>.", out.Text)
	assert.Equal(t, "html", out.Format)
}

func TestNormalise_Paragraphs(t *testing.T) {
	out := normalise(t, "<p>a</p><p>b</p>")
	assert.Empty(t, out.Title)
	assert.Equal(t, "a\n\nb", out.Text)
}

func TestNormalise_LineBreaks(t *testing.T) {
	out := normalise(t, "first<br>second<br/>third")
	assert.Equal(t, "first\nsecond\nthird", out.Text)
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_InlineAndLists(t *testing.T) {
	out := normalise(t, `<body><p>I <em>flew</em>
	over the <a href="#">sea</a>.</p><ul><li>wings</li><li>wind</li></ul><iframe src="x"></iframe></body>`)

	assert.Equal(t, "I flew over the sea.\n\nwings\n\nwind", out.Text)
}
