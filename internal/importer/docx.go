package importer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
)

// paragraph styles mapped to block elements, keyed by normalized style name.
var blockStyles = map[string]string{
	"title":        "h1",
	"heading1":     "h1",
	"heading2":     "h2",
	"heading3":     "h3",
	"quote":        "blockquote",
	"intensequote": "blockquote",
}

// centered paragraph styles.
var centerStyles = map[string]bool{
	"center":       true,
	"centered":     true,
	"normalcenter": true,
}

// character styles that imply emphasis.
var strongStyles = map[string]bool{"bold": true, "strong": true}
var emStyles = map[string]bool{"emphasis": true, "italic": true}

func normalizeStyle(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
}

// DocxToHTML reads the main document part of a WordprocessingML package and emits
// headings, quotes, paragraphs and bold/italic runs. Empty paragraphs are dropped.
func DocxToHTML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a docx package: %w", err)
	}
	var doc, styles *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			doc = f
		case "word/styles.xml":
			styles = f
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml missing")
	}

	names := map[string]string{}
	if styles != nil {
		if names, err = readStyleNames(styles); err != nil {
			return "", err
		}
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return convertDocument(rc, names)
}

// readStyleNames maps style ids to normalized display names.
func readStyleNames(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var parsed struct {
		Styles []struct {
			ID   string `xml:"styleId,attr"`
			Name struct {
				Val string `xml:"val,attr"`
			} `xml:"name"`
		} `xml:"style"`
	}
	if err := xml.NewDecoder(rc).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("styles.xml: %w", err)
	}
	names := make(map[string]string, len(parsed.Styles))
	for _, s := range parsed.Styles {
		names[s.ID] = normalizeStyle(s.Name.Val)
	}
	return names, nil
}

type docxParagraph struct {
	style  string
	center bool
	body   strings.Builder
	text   bool
}

type docxRun struct {
	bold   bool
	italic bool
	body   strings.Builder
}

func attr(se xml.StartElement, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// toggle reads an on/off property such as <w:b/> or <w:b w:val="0"/>.
func toggle(se xml.StartElement) bool {
	v, ok := attr(se, "val")
	if !ok {
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

func convertDocument(r io.Reader, styleNames map[string]string) (string, error) {
	styleName := func(id string) string {
		if n, ok := styleNames[id]; ok && n != "" {
			return n
		}
		return normalizeStyle(id)
	}

	dec := xml.NewDecoder(r)
	var out strings.Builder
	var para *docxParagraph
	var run *docxRun
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para = &docxParagraph{}
			case "pStyle":
				if para != nil {
					v, _ := attr(t, "val")
					para.style = styleName(v)
				}
			case "jc":
				if para != nil {
					v, _ := attr(t, "val")
					para.center = v == "center"
				}
			case "r":
				run = &docxRun{}
			case "rStyle":
				if run != nil {
					v, _ := attr(t, "val")
					name := styleName(v)
					run.bold = run.bold || strongStyles[name]
					run.italic = run.italic || emStyles[name]
				}
			case "b":
				if run != nil {
					run.bold = toggle(t)
				}
			case "i":
				if run != nil {
					run.italic = toggle(t)
				}
			case "t":
				inText = true
			case "br", "cr":
				if run != nil {
					run.body.WriteString("<br>")
				}
			case "tab":
				if run != nil {
					run.body.WriteString(" ")
				}
			}
		case xml.CharData:
			if inText && run != nil {
				run.body.WriteString(html.EscapeString(string(t)))
				if para != nil && strings.TrimSpace(string(t)) != "" {
					para.text = true
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				if run != nil && para != nil {
					para.body.WriteString(wrapRun(run))
				}
				run = nil
			case "p":
				if para != nil && para.text {
					out.WriteString(wrapParagraph(para))
				}
				para = nil
			}
		}
	}
	return out.String(), nil
}

func wrapRun(r *docxRun) string {
	s := r.body.String()
	if s == "" {
		return ""
	}
	if r.italic {
		s = "<em>" + s + "</em>"
	}
	if r.bold {
		s = "<strong>" + s + "</strong>"
	}
	return s
}

func wrapParagraph(p *docxParagraph) string {
	body := p.body.String()
	if tag, ok := blockStyles[p.style]; ok {
		if tag == "blockquote" {
			return "<blockquote><p>" + body + "</p></blockquote>"
		}
		return "<" + tag + ">" + body + "</" + tag + ">"
	}
	if p.center || centerStyles[p.style] {
		return `<p class="text-center">` + body + "</p>"
	}
	return "<p>" + body + "</p>"
}
