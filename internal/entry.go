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
	"path"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/linkgraph/internal/api"
	"github.com/starford/linkgraph/internal/builder"
	"github.com/starford/linkgraph/internal/graphservice"
	"github.com/starford/linkgraph/internal/mcpserver"
	"github.com/starford/linkgraph/internal/metrics"
	"github.com/starford/linkgraph/internal/sse"
	"github.com/starford/linkgraph/internal/storage"
	"github.com/starford/linkgraph/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeBuild, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
		if app.mode == ModeMCP {
			// stdout carries the MCP transport.
			out = os.Stderr
		}
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("site_root", cfg.Site.Root),
		slog.String("output", cfg.Graph.Output),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Site.Root, cfg.StorageOptions()...)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	switch app.mode {
	case ModeBuild:
		b := builder.New(store, cfg.BuildSettings(), logger, nil)
		if _, err := b.Build(ctx); err != nil {
			return fmt.Errorf("build: %w", err)
		}
		return nil
	case ModeWatch:
		return runWatch(ctx, cfg, store, logger)
	case ModeServe:
		return runServe(ctx, cfg, store, logger)
	case ModeMCP:
		return runMCP(ctx, cfg, store, logger, app.version)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

// watchConfig resolves the watched paths against the site root.
func watchConfig(cfg *Config, store *storage.FS) (watcher.Config, error) {
	abs := func(rel string) (string, error) {
		if rel == "" {
			return "", nil
		}
		return store.Abs(rel)
	}
	var wc watcher.Config
	for _, rel := range []string{cfg.Content.Posts, cfg.Content.Snippets} {
		p, err := abs(rel)
		if err != nil {
			return wc, fmt.Errorf("watch %s: %w", rel, err)
		}
		wc.Dirs = append(wc.Dirs, p)
	}
	for _, rel := range []string{cfg.Graph.HiddenConfig, cfg.Graph.QualityMetadata} {
		p, err := abs(rel)
		if err != nil {
			return wc, fmt.Errorf("watch %s: %w", rel, err)
		}
		if p != "" {
			wc.Files = append(wc.Files, p)
		}
	}
	output, err := abs(cfg.Graph.Output)
	if err != nil {
		return wc, fmt.Errorf("watch %s: %w", cfg.Graph.Output, err)
	}
	wc.Ignore = []string{output}
	wc.Debounce = cfg.Watch.Debounce
	return wc, nil
}

// waitForShutdown blocks until SIGINT/SIGTERM or ctx is done.
func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}

func runWatch(ctx context.Context, cfg *Config, store *storage.FS, logger *slog.Logger) error {
	wc, err := watchConfig(cfg, store)
	if err != nil {
		return err
	}
	b := builder.New(store, cfg.BuildSettings(), logger, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := b.Build(gCtx); err != nil {
			logger.Error("initial build failed", slog.String("error", err.Error()))
		}
		return watcher.Watch(gCtx, b, wc, logger, nil)
	})

	g.Go(func() error {
		waitForShutdown(gCtx, logger)
		cancel()
		return nil
	})

	return g.Wait()
}

func runServe(ctx context.Context, cfg *Config, store *storage.FS, logger *slog.Logger) error {
	wc, err := watchConfig(cfg, store)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	b := builder.New(store, cfg.BuildSettings(), logger, metrics.NewPrometheusRecorder(reg))

	svc := graphservice.New()
	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()

	onBuild := func(res *builder.Result, err error) {
		if err != nil {
			var be *builder.Error
			id := ""
			if errors.As(err, &be) {
				id = be.BuildID
			}
			broker.PublishFailed(id, err)
			return
		}
		svc.Update(res)
		broker.PublishUpdated(sse.Updated{
			BuildID:  res.BuildID,
			Checksum: res.Checksum,
			Nodes:    len(res.Graph.Nodes),
			Links:    len(res.Graph.Links),
		})
	}

	router := api.NewRouter(svc, api.RouterOptions{
		Events:       broker,
		Metrics:      metrics.HTTPHandler(reg),
		AllowOrigin:  cfg.App.HTTP.AllowOrigin,
		ArtifactPath: "/" + path.Base(cfg.Graph.Output),
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := b.Build(gCtx)
		if err != nil {
			logger.Error("initial build failed", slog.String("error", err.Error()))
		}
		onBuild(res, err)
		return watcher.Watch(gCtx, b, wc, logger, onBuild)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForShutdown(gCtx, logger)
		cancel()

		logger.Info("Shutting down server...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
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

func runMCP(ctx context.Context, cfg *Config, store *storage.FS, logger *slog.Logger, version string) error {
	wc, err := watchConfig(cfg, store)
	if err != nil {
		return err
	}
	b := builder.New(store, cfg.BuildSettings(), logger, nil)
	svc := graphservice.New()

	res, err := b.Build(ctx)
	if err != nil {
		logger.Error("initial build failed", slog.String("error", err.Error()))
	}
	svc.Update(res)

	srv := mcpserver.New(svc, b, version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Watch(gCtx, b, wc, logger, func(res *builder.Result, err error) {
			if err == nil {
				svc.Update(res)
			}
		})
	})

	g.Go(func() error {
		defer cancel()
		logger.Info("Starting MCP stdio server")
		return srv.ServeStdio()
	})

	return g.Wait()
}
