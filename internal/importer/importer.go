// Package importer converts uploaded documents into archive HTML.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"go-archive-app/internal/sanitize"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrUnsupportedFormat is returned for file types the importer cannot read.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Importer turns raw upload bytes into sanitized HTML.
type Importer struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// New creates an Importer.
func New() *Importer {
	return &Importer{
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer: sanitize.Policy(),
	}
}

// Convert dispatches on the file extension and returns sanitized HTML.
func (im *Importer) Convert(filename string, data []byte) (string, error) {
	var out string
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt", ".text":
		out = TextToHTML(string(data))
	case ".md", ".markdown":
		var buf bytes.Buffer
		if err := im.markdown.Convert(data, &buf); err != nil {
			return "", fmt.Errorf("markdown %s: %w", filename, err)
		}
		out = buf.String()
	case ".html", ".htm":
		out = string(data)
	case ".docx":
		h, err := DocxToHTML(data)
		if err != nil {
			return "", fmt.Errorf("docx %s: %w", filename, err)
		}
		out = h
	default:
		return "", fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
	return im.sanitizer.Sanitize(out), nil
}

// Title returns the upload name without its extension.
func Title(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// TextToHTML splits plain text on blank lines into <p> blocks. Single newlines inside
// a paragraph become <br>.
func TextToHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	for _, para := range blankLines.Split(text, -1) {
		para = strings.Trim(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = html.EscapeString(strings.TrimRight(l, " \t"))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
