package handler

import (
	"io/fs"
	"net/http"

	"go-archive-app/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the part of the session manager the router needs.
type Sessions interface {
	LoadAndSave(next http.Handler) http.Handler
}

// NewRouter creates and configures a new chi router.
func NewRouter(
	nodeHandler *NodeHandler,
	adminHandler *AdminHandler,
	seoHandler *SeoHandler,
	authzMiddleware func(http.Handler) http.Handler,
	errorMiddleware func(middleware.AppHandler) http.Handler,
	unlockLimiter *middleware.RateLimiter,
	sessions Sessions,
	static fs.FS,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	if static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(sessions.LoadAndSave)
		r.Use(middleware.LanguageMiddleware)
		r.Use(authzMiddleware)

		r.Method(http.MethodGet, "/", errorMiddleware(nodeHandler.homeHandler))
		r.Method(http.MethodGet, "/node/{id}", errorMiddleware(nodeHandler.nodePageHandler))
		r.Method(http.MethodGet, "/search", errorMiddleware(nodeHandler.searchPageHandler))
		r.Method(http.MethodGet, "/robots.txt", errorMiddleware(seoHandler.robotsHandler))
		r.Method(http.MethodGet, "/sitemap.xml", errorMiddleware(seoHandler.sitemapHandler))

		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/nodes", errorMiddleware(nodeHandler.listNodesHandler))
			r.Method(http.MethodGet, "/nodes/{id}", errorMiddleware(nodeHandler.getNodeHandler))
			r.Method(http.MethodGet, "/nodes/{id}/children", errorMiddleware(nodeHandler.childrenHandler))
			r.Method(http.MethodGet, "/tree", errorMiddleware(nodeHandler.treeHandler))
			r.Method(http.MethodGet, "/search", errorMiddleware(nodeHandler.searchAPIHandler))

			r.Route("/admin", func(r chi.Router) {
				r.Method(http.MethodPost, "/nodes", errorMiddleware(adminHandler.createNodeHandler))
				r.Method(http.MethodPatch, "/nodes/{id}", errorMiddleware(adminHandler.updateNodeHandler))
				r.Method(http.MethodDelete, "/nodes/{id}", errorMiddleware(adminHandler.deleteNodeHandler))
				r.Method(http.MethodPost, "/nodes/{id}/move", errorMiddleware(adminHandler.moveNodeHandler))
				r.Method(http.MethodPost, "/nodes/{id}/translate", errorMiddleware(adminHandler.translateNodeHandler))
				r.Method(http.MethodPost, "/import", errorMiddleware(adminHandler.importHandler))
				r.Method(http.MethodPost, "/sync", errorMiddleware(adminHandler.syncHandler))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Method(http.MethodGet, "/unlock", errorMiddleware(adminHandler.unlockFormHandler))
			r.With(unlockLimiter.Limit(http.MethodPost)).
				Method(http.MethodPost, "/unlock", errorMiddleware(adminHandler.unlockHandler))
			r.Method(http.MethodPost, "/lock", errorMiddleware(adminHandler.lockHandler))
		})
	})

	return r
}
