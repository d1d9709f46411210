// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/periodic/internal/api"
	"github.com/starford/periodic/internal/index"
	"github.com/starford/periodic/internal/mcpserver"
	"github.com/starford/periodic/internal/noteservice"
	"github.com/starford/periodic/internal/settings"
	"github.com/starford/periodic/internal/sse"
	"github.com/starford/periodic/internal/vault"
)

// Runtime holds the vault-backed components shared by every command.
type Runtime struct {
	Store    *vault.FS
	DB       *index.DB
	Settings *settings.Store
	Service  *noteservice.Service
}

// Close releases the service subscription and the index.
func (rt *Runtime) Close() {
	rt.Service.Close()
	if err := rt.DB.Close(); err != nil {
		slog.Warn("close index", slog.String("error", err.Error()))
	}
}

// Bootstrap opens the vault, loads the settings and builds an indexed note
// service. A partial initial scan is logged and tolerated.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...noteservice.Option) (*Runtime, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}
	st, err := settings.Open(store, cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	db, err := index.Open(cfg.Index.DSN)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	opts = append([]noteservice.Option{noteservice.WithLogger(logger)}, opts...)
	svc := noteservice.NewService(store, db, st, opts...)
	if err := svc.Rebuild(ctx); err != nil {
		logger.Warn("initial index build incomplete", slog.String("error", err.Error()))
	}

	return &Runtime{Store: store, DB: db, Settings: st, Service: svc}, nil
}

// NewLogger returns the JSON logger configured by cfg writing to w.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Run starts the HTTP server and the vault watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_dsn", cfg.Index.DSN),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Index.CalendarThrottle)
	defer broker.Close()

	rt, err := Bootstrap(ctx, cfg, logger, noteservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer rt.Close()

	unsubscribe := rt.Settings.Subscribe(func(s settings.Settings) {
		broker.PublishSettings(s)
	})
	defer unsubscribe()

	apiRouter := api.NewRouter(rt.Service, rt.Store, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, rt.DB, rt.Store, rt.Store.Root(), rt.Service.Snapshot, logger, broker.PublishNoteEvent)
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol. The vault is watched while the server runs.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	rt, err := Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(watchCtx, rt.DB, rt.Store, rt.Store.Root(), rt.Service.Snapshot, logger, nil); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(rt.Service, rt.Store).ServeStdio()
}
