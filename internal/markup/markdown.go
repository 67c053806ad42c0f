package markup

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		// Raw HTML stays disabled: no html.WithUnsafe().
		html.WithHardWraps(),
	),
)

// RenderMarkdown converts finance details to HTML.
func RenderMarkdown(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return template.HTML("")
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(b.String())
}
