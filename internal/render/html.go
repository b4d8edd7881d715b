// Package render turns the merged Markdown artifact into standalone HTML
// for quick inspection of OCR output in a browser.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 50rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.6; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 0.3rem 0.6rem; }
img { max-width: 100%%; }
</style>
</head>
<body>
%s</body>
</html>
`

// HTML renders Markdown into a complete HTML document. GFM extensions are
// enabled because OCR output leans heavily on tables.
func HTML(title string, markdown []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return []byte(fmt.Sprintf(htmlShell, html.EscapeString(title), body.String())), nil
}
