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

	"github.com/starford/lifematrix/internal/api"
	"github.com/starford/lifematrix/internal/identity"
	"github.com/starford/lifematrix/internal/mcpserver"
	"github.com/starford/lifematrix/internal/profile"
	"github.com/starford/lifematrix/internal/remotesync"
	"github.com/starford/lifematrix/internal/sse"
	"github.com/starford/lifematrix/internal/storage"
)

// runtime is the wired core shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	svc    *profile.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// boot opens the store and restores the profile. notify may be nil.
func boot(ctx context.Context, app *application, notify profile.Notifier) (*runtime, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("store_path", cfg.Store.Path),
		slog.String("sync_mode", cfg.Sync.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	loc, err := cfg.Profile.Location()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("profile timezone: %w", err)
	}

	var mirror remotesync.Mirror = remotesync.Noop{}
	if cfg.Sync.Mode == remotesync.ModeHTTP {
		mirror = remotesync.NewHTTP(cfg.Sync.Endpoint, cfg.Sync.Token, cfg.Sync.Timeout)
	}

	svc := profile.NewService(store,
		profile.WithKey(cfg.Store.Key),
		profile.WithIdentity(identity.NewLocal(identity.Handle{
			ID:          cfg.Auth.User.ID,
			DisplayName: cfg.Auth.User.DisplayName,
			Email:       cfg.Auth.User.Email,
		})),
		profile.WithMirror(mirror),
		profile.WithLogger(logger),
		profile.WithNotifier(notify),
		profile.WithPresets(cfg.Profile.Dimensions),
		profile.WithLocation(loc),
	)
	stage := svc.Load(ctx)
	logger.Info("Profile loaded", slog.String("stage", string(stage)))

	return &runtime{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

func (rt *runtime) close() {
	rt.svc.Close()
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("store close failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := boot(ctx, app, broker.PublishChange)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.App.RadarSize)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","stage":%q}`, rt.svc.Stage())
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the snapshot file for edits made outside this process.
	if fs, ok := rt.store.(*storage.FS); ok {
		g.Go(func() error {
			err := storage.Watch(gCtx, fs, cfg.Store.Key, logger, func(key string) {
				reloaded := rt.svc.Reload()
				logger.Info("snapshot changed on disk", slog.String("key", key), slog.Bool("reloaded", reloaded))
				broker.Publish(sse.Event{Type: sse.EventSnapshotChanged, Data: map[string]any{"key": key, "reloaded": reloaded}})
			})
			if err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
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

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := boot(ctx, app, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(rt.svc).ServeStdio()
}

// Status writes a one-screen summary of the stored profile to w.
func Status(ctx context.Context, w io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(io.Discard)}, opts...))
	if err != nil {
		return err
	}
	rt, err := boot(ctx, app, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	return writeStatus(w, rt.svc.Dashboard(rt.cfg.App.RadarSize))
}

func writeStatus(w io.Writer, d profile.Dashboard) error {
	if d.Stage != profile.StageDashboard {
		_, err := fmt.Fprintf(w, "No profile yet (stage %s). Run `lifematrix serve` to set one up.\n", d.Stage)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s  Lv.%d  balance %d%%\n\n", d.Name, d.TotalLevel, d.Balance); err != nil {
		return err
	}
	for _, dim := range d.Dimensions {
		if !dim.Active {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-10s Lv.%-3d %4d xp  %3.0f%%\n", dim.Name, dim.Level, dim.Score, dim.Progress); err != nil {
			return err
		}
	}
	if len(d.Recent) > 0 {
		if _, err := fmt.Fprintln(w, "\nRecent:"); err != nil {
			return err
		}
		for _, e := range d.Recent {
			if _, err := fmt.Fprintf(w, "  %s  %-10s %s\n", e.DateStr, e.DimName, e.Text); err != nil {
				return err
			}
		}
	}
	return nil
}
