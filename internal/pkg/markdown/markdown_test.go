package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	html, err := Render("# Hello\n\nsome **bold** text")
	assert.NoError(t, err)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestPlainTextStripsFormatting(t *testing.T) {
	out := PlainText("# Title\n\nsome **bold** and text with [a link](https://example.com)")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "some bold and text with a link")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "https://example.com")
}

func TestPlainTextKeepsCodeBlocks(t *testing.T) {
	out := PlainText("intro\n\n```go\nfmt.Println(1)\n```\n")
	assert.Contains(t, out, "intro")
	assert.Contains(t, out, "fmt.Println(1)")
}

func TestPlainTextEmpty(t *testing.T) {
	assert.Equal(t, "", PlainText(""))
}
