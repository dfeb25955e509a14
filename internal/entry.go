// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/kisernl/flashcard-app/internal/api"
	"github.com/kisernl/flashcard-app/internal/deckservice"
	"github.com/kisernl/flashcard-app/internal/legacy"
	"github.com/kisernl/flashcard-app/internal/remote"
	"github.com/kisernl/flashcard-app/internal/sse"
	"github.com/kisernl/flashcard-app/internal/store"
)

// NewService builds the deck service from configuration. Used by both the
// HTTP server and the MCP stdio command.
func NewService(cfg *Config) (*deckservice.Service, *store.DB, error) {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return deckservice.NewService(db, newRemoteClient(cfg)), db, nil
}

func newRemoteClient(cfg *Config) remote.Client {
	if cfg.Remote.Enabled() {
		return remote.NewHTTPClient(cfg.Remote.Endpoint, cfg.Remote.Project, cfg.Remote.Key, cfg.Remote.Database)
	}
	return remote.Nop{}
}

// MigrateLegacy runs the one-shot flat-file migration when a legacy path is
// configured. Both the HTTP server and the MCP stdio command call it on
// startup, so a dump from an old install is visible over either surface.
// Migration failures are logged and the source keys retained; the returned
// provider is non-nil whenever a legacy path is configured, so callers can
// keep watching it.
func MigrateLegacy(ctx context.Context, cfg *Config, st store.Store, logger *slog.Logger) (*legacy.Files, error) {
	if cfg.Legacy.Path == "" {
		return nil, nil
	}
	flat, err := legacy.NewFiles(cfg.Legacy.Path)
	if err != nil {
		return nil, fmt.Errorf("init legacy storage: %w", err)
	}
	if err := legacy.Migrate(ctx, st, flat, logger); err != nil {
		logger.Warn("legacy migration failed, keys retained", slog.String("error", err.Error()))
	}
	return flat, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("remote_mode", cfg.Remote.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	rc := app.remote
	if rc == nil {
		rc = newRemoteClient(cfg)
	}
	svc := deckservice.NewService(db, rc)

	// One-shot migration of flat-file dumps from the old storage format.
	flat, err := MigrateLegacy(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API router.
	sessions := api.NewSessionRegistry()
	apiRouter := api.NewRouter(svc, sessions, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cfg.Remote.Enabled() {
			pingCtx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
			defer cancel()
			if err := svc.PingRemote(pingCtx); err != nil {
				logger.Warn("readiness: mirror unreachable", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep watching for legacy dumps dropped while the server runs.
	if flat != nil && cfg.Legacy.Watch {
		g.Go(func() error {
			return legacy.Watch(gCtx, db, flat, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
