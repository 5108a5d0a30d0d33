package renderer

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.2em 0.6em; }
td { text-align: right; }
</style>
</head>
<body>
`

// HTML converts a markdown document into a standalone HTML page.
func HTML(title, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var b bytes.Buffer
	fmt.Fprintf(&b, htmlHeader, title)
	if err := md.Convert([]byte(markdown), &b); err != nil {
		return "", fmt.Errorf("cannot convert markdown: %w", err)
	}
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
