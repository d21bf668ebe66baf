package handler

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"go-archive-app/internal/middleware"
	"go-archive-app/internal/service"
)

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	nodes   service.NodeServicer
	baseURL string
}

// NewSeoHandler creates a new SeoHandler. baseURL is the public origin, e.g.
// https://archive.example.org.
func NewSeoHandler(ns service.NodeServicer, baseURL string) *SeoHandler {
	return &SeoHandler{nodes: ns, baseURL: strings.TrimRight(baseURL, "/")}
}

// robotsHandler allows everything except the admin surface.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /admin/")
	fmt.Fprintln(w, "Disallow: /api/admin/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
	return nil
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler lists the home page and every node page.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to retrieve nodes for sitemap")
	}

	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(nodes)+1),
	}
	sitemap.URLs = append(sitemap.URLs, sitemapURL{Loc: h.baseURL + "/"})
	for _, n := range nodes {
		mod := n.UpdatedAt
		if mod.IsZero() {
			mod = n.CreatedAt
		}
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL + "/node/" + n.ID,
			LastMod: mod.UTC().Format(sitemapDateFormat),
		})
	}

	out, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to generate sitemap XML", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	w.Write(out)
	return nil
}
