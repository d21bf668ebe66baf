package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go-archive-app/internal/data"
	"go-archive-app/internal/sanitize"
)

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
}

// Funcs are the template helpers shared by every page.
func Funcs() template.FuncMap {
	policy := sanitize.Policy()
	return template.FuncMap{
		"label": func(name string) data.Label { return data.ParseLabel(name) },
		// rows may have been written by other tools, so sanitize again on output.
		"safeHTML": func(s string) template.HTML { return template.HTML(policy.Sanitize(s)) },
		"date":     func(t time.Time) string { return t.Format("2 Jan 2006") },
		"isFolder": func(n *data.Node) bool { return n.IsFolder() },
		"file":     func(n *data.Node) *data.File { return n.File() },
		"embedURL": EmbedURL,
	}
}

// New creates a new View by parsing all templates from the given filesystem.
func New(templateFS fs.FS) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	// Each page is parsed together with the layouts under the page's base name.
	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

// Render executes a specific template by name, adding the reading language.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	data["Lang"] = string(LangModeFrom(r.Context()))

	// Execute into a buffer first so a template error does not leave a half-written page.
	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// EmbedURL turns a YouTube watch or short link into its embed form. Other URLs are
// returned unchanged.
func EmbedURL(raw string) string {
	switch {
	case strings.Contains(raw, "youtube.com/watch"):
		if _, id, ok := strings.Cut(raw, "v="); ok {
			id, _, _ = strings.Cut(id, "&")
			return "https://www.youtube.com/embed/" + id
		}
	case strings.Contains(raw, "youtu.be/"):
		_, id, _ := strings.Cut(raw, "youtu.be/")
		id, _, _ = strings.Cut(id, "?")
		return "https://www.youtube.com/embed/" + id
	}
	return raw
}
