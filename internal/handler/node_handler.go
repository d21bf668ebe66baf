package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"go-archive-app/internal/data"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/middleware"
	"go-archive-app/internal/service"
	"go-archive-app/internal/tree"

	"github.com/go-chi/chi/v5"
)

const (
	featuredVideos    = 4
	searchPageLimit   = 50
	searchAPIDefault  = 5
	searchAPIMaxLimit = 100
)

// NodeHandler serves the public archive pages and the read API.
type NodeHandler struct {
	nodes service.NodeServicer
	view  middleware.Renderer
	log   logger.Logger
}

// NewNodeHandler creates a new NodeHandler with the given dependencies.
func NewNodeHandler(ns service.NodeServicer, v middleware.Renderer, log logger.Logger) *NodeHandler {
	return &NodeHandler{nodes: ns, view: v, log: log}
}

// render fills the fields every page layout reads and writes the page with 200.
func render(v middleware.Renderer, w http.ResponseWriter, r *http.Request, name string, page map[string]interface{}) *middleware.AppError {
	return renderStatus(v, w, r, http.StatusOK, name, page)
}

func renderStatus(v middleware.Renderer, w http.ResponseWriter, r *http.Request, code int, name string, page map[string]interface{}) *middleware.AppError {
	if page == nil {
		page = map[string]interface{}{}
	}
	page["IsAdmin"] = middleware.GetUserInfo(r.Context()).IsAdmin()
	if _, ok := page["Query"]; !ok {
		page["Query"] = ""
	}
	var buf bytes.Buffer
	if err := v.Render(&buf, r, name, page); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
	return nil
}

// homeHandler lists the root folders and the newest videos.
func (h *NodeHandler) homeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to load the archive")
	}
	return render(h.view, w, r, "home.html", map[string]interface{}{
		"Folders": tree.RootFolders(nodes),
		"Videos":  tree.FeaturedVideos(nodes, featuredVideos),
	})
}

// nodePageHandler shows a folder listing or a file, with breadcrumbs.
func (h *NodeHandler) nodePageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to load the archive")
	}
	n, ok := tree.Index(nodes)[id]
	if !ok {
		return appError(fmt.Errorf("node %s: %w", id, data.ErrNotFound), "")
	}

	page := map[string]interface{}{
		"Node":   n,
		"Crumbs": tree.Ancestors(nodes, id),
	}
	switch n.Body.(type) {
	case data.Folder, nil:
		page["Children"] = tree.Children(nodes, id)
	case *data.File:
	}
	return render(h.view, w, r, "node.html", page)
}

// searchPageHandler renders name matches for ?q=.
func (h *NodeHandler) searchPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	q := r.URL.Query().Get("q")
	var results []*data.Node
	if q != "" {
		nodes, err := h.nodes.FetchAll(r.Context())
		if err != nil {
			return appError(err, "Failed to search the archive")
		}
		results = tree.Search(nodes, q, searchPageLimit)
	}
	return render(h.view, w, r, "search.html", map[string]interface{}{
		"Query":   q,
		"Results": results,
	})
}

// listNodesHandler returns every node as JSON.
func (h *NodeHandler) listNodesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to load nodes")
	}
	if nodes == nil {
		nodes = []*data.Node{}
	}
	middleware.WriteJSON(w, http.StatusOK, nodes)
	return nil
}

func (h *NodeHandler) getNodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	n, err := h.nodes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return appError(err, "Failed to load node")
	}
	middleware.WriteJSON(w, http.StatusOK, n)
	return nil
}

// childrenHandler returns the direct children of a folder, newest first.
func (h *NodeHandler) childrenHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to load nodes")
	}
	if _, ok := tree.Index(nodes)[id]; !ok {
		return appError(fmt.Errorf("node %s: %w", id, data.ErrNotFound), "")
	}
	children := tree.Children(nodes, id)
	if children == nil {
		children = []*data.Node{}
	}
	middleware.WriteJSON(w, http.StatusOK, children)
	return nil
}

func (h *NodeHandler) treeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to load nodes")
	}
	branches := tree.Build(nodes)
	if branches == nil {
		branches = []*tree.Branch{}
	}
	middleware.WriteJSON(w, http.StatusOK, branches)
	return nil
}

// searchAPIHandler returns at most ?limit= matches (default 5) for ?q=.
func (h *NodeHandler) searchAPIHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	limit := searchAPIDefault
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return badRequest(err, "limit must be a positive integer")
		}
		limit = min(n, searchAPIMaxLimit)
	}
	nodes, err := h.nodes.FetchAll(r.Context())
	if err != nil {
		return appError(err, "Failed to search nodes")
	}
	results := tree.Search(nodes, r.URL.Query().Get("q"), limit)
	if results == nil {
		results = []*data.Node{}
	}
	middleware.WriteJSON(w, http.StatusOK, results)
	return nil
}
