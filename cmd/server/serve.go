package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-archive-app/internal/auth"
	"go-archive-app/internal/cache"
	"go-archive-app/internal/config"
	"go-archive-app/internal/data"
	"go-archive-app/internal/handler"
	"go-archive-app/internal/importer"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/metrics"
	"go-archive-app/internal/middleware"
	"go-archive-app/internal/service"
	"go-archive-app/internal/translate"
	"go-archive-app/internal/view"
	"go-archive-app/web"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// stores holds the opened backends. remote is nil in local-only mode. remotePending
// is set while the remote schema has not been migrated yet.
type stores struct {
	local         *sqlx.DB
	remote        *sqlx.DB
	remoteDSN     string
	remotePending bool
}

func (s *stores) Close() {
	s.local.Close()
	if s.remote != nil {
		s.remote.Close()
	}
}

// migrateRemote applies the remote migrations if they are still outstanding.
func (s *stores) migrateRemote() error {
	if s.remote == nil || !s.remotePending {
		return nil
	}
	if err := data.ApplyMigrations(data.DialectMySQL, s.remoteDSN); err != nil {
		return err
	}
	s.remotePending = false
	return nil
}

// openStores migrates and connects the local snapshot and, when configured, the
// remote primary. Unless requireRemote is set, an unreachable remote is only logged:
// the node service then serves the local snapshot until the remote returns.
func openStores(cfg *config.Config, log logger.Logger, requireRemote bool) (*stores, error) {
	log.Info("Applying local database migrations...")
	if err := data.ApplyMigrations(data.DialectSQLite, cfg.Local.Path); err != nil {
		return nil, fmt.Errorf("local migrations: %w", err)
	}
	local, err := data.NewLocalDB(cfg.Local.Path)
	if err != nil {
		return nil, err
	}
	s := &stores{local: local}

	if !cfg.Remote.Enabled() {
		log.Warn("No remote database configured, running in local-only mode")
		return s, nil
	}
	s.remote, err = data.NewRemoteDB(cfg.Remote.DSN)
	if err != nil {
		local.Close()
		return nil, err
	}
	s.remoteDSN = cfg.Remote.DSN
	s.remotePending = true

	log.Info("Applying remote database migrations...")
	if err := s.migrateRemote(); err != nil {
		if requireRemote {
			s.Close()
			return nil, fmt.Errorf("remote migrations: %w", err)
		}
		log.With(map[string]interface{}{"error": err.Error()}).Warn("Remote database unreachable, serving the local snapshot")
	}
	return s, nil
}

func newNodeService(st *stores, log logger.Logger) *service.NodeService {
	storeCfg := service.NodeStoreConfig{
		Local:   data.NewSQLNodeRepository(st.local),
		Log:     log.With(map[string]interface{}{"component": "nodes"}),
		Metrics: metrics.Prometheus{},
	}
	if st.remote != nil {
		storeCfg.Remote = data.NewSQLNodeRepository(st.remote)
	}
	return service.NewNodeService(storeCfg)
}

func runServe() error {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Database Initialization and Migration ---
	st, err := openStores(cfg, log, false)
	if err != nil {
		log.Fatal(err, "Failed to open databases")
	}
	defer st.Close()
	log.Info("Databases ready.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	if cfg.Session.Store == "remote" && st.remote != nil && !st.remotePending {
		sessionManager.Store = mysqlstore.New(st.remote.DB)
	} else {
		if cfg.Session.Store == "remote" {
			log.Warn("Remote session store unavailable, keeping sessions in the local database")
		}
		sessionManager.Store = sqlite3store.New(st.local.DB)
	}
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authorization Setup ---
	log.Info("Initializing authorization...")
	enforcer, err := auth.NewEnforcer("sqlite", cfg.Local.Path)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)

	gate, err := auth.NewGate(cfg.Admin)
	if err != nil {
		log.Fatal(err, "Failed to initialize admin passcode")
	}
	if gate.IsDefault() {
		log.Warn("Admin passcode is the built-in default, set ARCHIVE_ADMIN_PASSCODEHASH")
	}

	// --- View Template Initialization ---
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Fatal(err, "Failed to open static assets")
	}

	// --- Translation Setup ---
	translationCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize translation cache")
	}
	defer translationCache.Close()
	var translator translate.Translator
	if cfg.Translation.APIKey != "" {
		translator = translate.NewCached(
			translate.NewGemini(cfg.Translation),
			translationCache,
			cfg.Translation.Tone,
			cfg.Translation.Complexity,
			log.With(map[string]interface{}{"component": "translate"}),
		)
	} else {
		log.Warn("No translation API key configured, imports will be stored untranslated")
	}

	// --- Dependency Injection and Handler Initialization ---
	nodeService := newNodeService(st, log)
	seeded, err := nodeService.SeedIfEmpty(context.Background())
	if err != nil {
		log.Error(err, "Failed to seed the archive")
	} else if seeded {
		log.Info("Archive seeded with the default folders.")
	}
	importService := service.NewImportService(
		nodeService,
		importer.New(),
		translator,
		log.With(map[string]interface{}{"component": "import"}),
		metrics.Prometheus{},
		time.Duration(cfg.Translation.TimeoutSeconds)*time.Second,
	)

	nodeHandler := handler.NewNodeHandler(nodeService, viewService, log)
	adminHandler := handler.NewAdminHandler(nodeService, importService, gate, sessionManager, viewService, log, handler.DefaultMaxUpload)
	seoHandler := handler.NewSeoHandler(nodeService, cfg.Server.BaseURL)

	authzMiddleware := middleware.Authorizer(enforcer, sessionManager, log)
	errorMiddleware := middleware.Error(log, viewService)
	unlockLimiter := middleware.NewRateLimiter(cfg.Admin.UnlockRate, cfg.Admin.UnlockBurst)

	// --- Router Setup ---
	router := handler.NewRouter(nodeHandler, adminHandler, seoHandler, authzMiddleware, errorMiddleware, unlockLimiter, sessionManager, static)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				unlockLimiter.Cleanup(time.Hour)
				if st.remotePending {
					if err := st.migrateRemote(); err != nil {
						log.Debug("Remote database still unreachable")
					} else {
						log.Info("Remote database migrations applied.")
					}
				}
				if n, err := translationCache.Purge(context.Background()); err != nil {
					log.Error(err, "Failed to purge translation cache")
				} else if n > 0 {
					log.Debug(fmt.Sprintf("Purged %d expired translations", n))
				}
			case <-stopCleanup:
				return
			}
		}
	}()

	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	close(stopCleanup)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	log.Info("Waiting for background translations...")
	importService.Wait()
	log.Info("Server exiting")
	return nil
}
