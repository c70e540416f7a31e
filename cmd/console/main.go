// CIMEX console server: holds the operator session and streams panel views.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/cimex/cimex-console/internal/api"
	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/config"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/live"
	"github.com/cimex/cimex-console/internal/metrics"
	"github.com/cimex/cimex-console/internal/middleware"
	"github.com/cimex/cimex-console/internal/navigation"
	"github.com/cimex/cimex-console/internal/session"
	"github.com/cimex/cimex-console/internal/store"
	"github.com/cimex/cimex-console/internal/views"
	"github.com/cimex/cimex-console/web"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	slog.Info("Starting console", "port", cfg.Port, "backend", cfg.APIURL, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	m := metrics.New()
	client := apiclient.New(cfg.APIURL, &apiclient.Credential{},
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithObserver(m.ObserveRequest),
	)
	nav := navigation.New("/")
	sessions := session.New(repo, client, nav)
	registry := live.NewRegistry()

	sessions.OnChange(m.ObserveSession)
	sessions.OnChange(func(s domain.Session) {
		if s.State != domain.StateUnauthenticated {
			return
		}
		// Listeners run on the caller's goroutine, often a fetch in flight.
		go func() {
			if n := registry.EndSession(); n > 0 {
				slog.Info("Closed live views after session ended", "count", n)
			}
		}()
	})

	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), cfg.APITimeout)
	if sessions.Restore(restoreCtx) {
		slog.Info("Session restored", "username", sessions.Session().Username)
	}
	cancelRestore()

	catalog := views.NewCatalog(client,
		views.WithIntervals(views.Intervals{
			Dashboard:  cfg.Poll.Dashboard,
			Logs:       cfg.Poll.Logs,
			CoreHealth: cfg.Poll.CoreHealth,
		}),
		views.WithLogLimit(cfg.Poll.LogLimit),
		views.WithFetchObserver(m.ObserveFetch),
	)

	// Initialize handlers.
	baseHandler := api.NewHandler(client, sessions, registry, cfg.Poll.LogLimit)
	healthHandler := api.NewHealthHandler(repo, client)
	wsHandler := live.NewHandler(catalog, registry, sessions, nav, cfg.FrontendURL, cfg.IsDevelopment())
	wsHandler.SetMountObserver(m.ViewMounted)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	baseHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Method(http.MethodGet, "/ws/views/{view}", wsHandler)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays 0: live views hold their connection open.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartStorageWatcher(ctx, sessions, session.StorageWatchInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	// Hijacked websockets are not tracked by Shutdown.
	registry.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// allowedOrigins returns the CORS origins: the SPA dev server when one is
// configured, any origin otherwise.
func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
