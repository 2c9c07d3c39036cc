// Package render turns generated Markdown into HTML for display.
package render

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md leaves raw HTML in the source escaped (goldmark's default), so its output
// is safe to embed in pages.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown converts src to HTML. On a conversion failure the source is shown
// escaped inside a <pre> block.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}
