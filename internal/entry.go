// Package internal provides the main application initialization and
// runtime logic.
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

	"shelf/internal/api"
	"shelf/internal/importer"
	"shelf/internal/mcpserver"
	"shelf/internal/persist"
	"shelf/internal/sse"
	"shelf/internal/storage"
	"shelf/internal/store"
	"shelf/internal/vaultservice"
)

// Run starts the HTTP application with the given options.
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
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("import_watch_dir", cfg.Import.WatchDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Durable substrate.
	db, err := persist.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}
	defer db.Close()

	// Optional export artifact directory.
	var exports *storage.Dir
	if cfg.Export.Dir != "" {
		exports, err = storage.NewDir(cfg.Export.Dir)
		if err != nil {
			return fmt.Errorf("init export dir: %w", err)
		}
	}

	// SSE broker for record change events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Record store and service; load-on-start, then write-through on
	// every mutation.
	st := store.New()
	svc := vaultservice.NewService(st, db, exports, broker.PublishRecordEvent)

	count, loadErr := svc.Load(ctx)
	if loadErr != nil {
		logger.Warn("initial load failed, starting with empty collection",
			slog.String("error", loadErr.Error()))
	} else {
		logger.Info("records loaded", slog.Int("count", count))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Drop-folder auto-import, when configured.
	if cfg.Import.WatchDir != "" {
		g.Go(func() error {
			if err := importer.Watch(gCtx, svc, cfg.Import.WatchDir, logger); err != nil {
				logger.Error("importer failed", slog.String("error", err.Error()))
			}
			return nil
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

// RunMCP starts the stdio MCP server over the same store and
// persistence stack, without the HTTP surface.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// MCP talks on stdout; keep logs on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := persist.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}
	defer db.Close()

	st := store.New()
	svc := vaultservice.NewService(st, db, nil, nil)
	if _, err := svc.Load(ctx); err != nil {
		logger.Warn("initial load failed, starting with empty collection",
			slog.String("error", err.Error()))
	}

	return mcpserver.New(svc).ServeStdio()
}
