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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mynotes/internal/api"
	"github.com/starford/mynotes/internal/backend"
	"github.com/starford/mynotes/internal/graphql"
	"github.com/starford/mynotes/internal/mcpserver"
	"github.com/starford/mynotes/internal/notebook"
	"github.com/starford/mynotes/internal/notedb"
	"github.com/starford/mynotes/internal/sse"
	"github.com/starford/mynotes/internal/storage"
	"github.com/starford/mynotes/internal/web"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts...)
	if err != nil {
		return err
	}
	defer app.close()

	cfg := app.config
	logger := app.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// The API shares one collection view; every web session gets its own.
	apiView := notebook.New(app.api, app.store,
		notebook.WithLogger(logger),
		notebook.WithOnChange(broker.PublishNoteEvent))
	if err := apiView.Mount(ctx); err != nil {
		logger.Warn("initial fetch failed", slog.String("error", err.Error()))
	}

	sessions := web.NewSessions(func() *notebook.View {
		return notebook.New(app.api, app.store,
			notebook.WithLogger(logger),
			notebook.WithOnChange(broker.PublishNoteEvent))
	}, cfg.Auth.SessionTTL, func(sessionID string) {
		logger.Info("user signed out", slog.String("session_id", sessionID))
	})

	authEnabled := cfg.Auth.AuthEnabled()
	apiRouter := api.NewRouter(apiView, authEnabled, cfg.Auth.Token, sessions, broker)
	webHandler := web.NewHandler(sessions, authEnabled, cfg.Auth.Token)
	objects := api.NewObjectHandler(app.store)

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
		if _, err := app.api.ListNotes(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"backend unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	r.With(api.AuthMiddleware(authEnabled, cfg.Auth.Token, sessions)).
		Get(strings.TrimSuffix(cfg.Storage.URLPrefix, "/")+"/*", objects.ServeObject)
	r.Mount("/", webHandler.Routes())

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Report out-of-band object changes.
	g.Go(func() error {
		if err := storage.Watch(gCtx, app.store.Root(), logger, broker.PublishObjectEvent); err != nil {
			logger.Warn("object watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

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

// RunMCP serves the note tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, version string, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}
	defer app.close()

	view := notebook.New(app.api, app.store, notebook.WithLogger(app.logger))
	if err := view.Mount(ctx); err != nil {
		app.logger.Warn("initial fetch failed", slog.String("error", err.Error()))
	}

	app.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(view, version).ServeStdio()
}

// errShutdown cancels the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func newApplication(logOut io.Writer, opts ...Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(app.logger)

	app.logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend", cfg.Backend.Mode),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Storage.Path, cfg.Storage.URLPrefix)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	app.store = store

	notes, closer, err := openBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	app.api = notes
	app.closer = closer
	return app, nil
}

func openBackend(cfg BackendConfig) (backend.API, io.Closer, error) {
	switch cfg.Mode {
	case BackendGraphQL:
		var opts []graphql.Option
		if cfg.GraphQL.APIKey != "" {
			opts = append(opts, graphql.WithAPIKey(cfg.GraphQL.APIKey))
		}
		if cfg.GraphQL.Timeout > 0 {
			opts = append(opts, graphql.WithHTTPClient(&http.Client{Timeout: cfg.GraphQL.Timeout}))
		}
		return graphql.New(cfg.GraphQL.Endpoint, opts...), nil, nil
	default:
		db, err := notedb.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open note database: %w", err)
		}
		return db, db, nil
	}
}
