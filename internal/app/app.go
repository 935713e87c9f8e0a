// Package app is the composition root of the worker server: it wires the
// manifest, logger, operation registry, worker, and websocket transport
// together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vk/planweave/internal/config"
	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/remote"
	"github.com/vk/planweave/internal/worker"
)

// Config holds everything an App needs to run.
type Config struct {
	ManifestPath string
	Listen       string
	LogFormat    string
	LogLevel     string
}

// App encapsulates the worker server's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model
	worker *worker.Worker
	listen string
}

// NewApp builds a fully initialized App from its configuration. A manifest
// that fails to load or validate is a fatal startup error.
func NewApp(outW io.Writer, appConfig *Config) *App {
	model, err := config.Load(appConfig.ManifestPath)
	if err != nil {
		panic(fmt.Errorf("failed to load manifest: %w", err))
	}

	// CLI flags override manifest settings.
	level := model.Log.Level
	if appConfig.LogLevel != "" {
		level = appConfig.LogLevel
	}
	format := model.Log.Format
	if appConfig.LogFormat != "" {
		format = appConfig.LogFormat
	}
	listen := model.Worker.Listen
	if appConfig.Listen != "" {
		listen = appConfig.Listen
	}
	if listen == "" {
		listen = ":8799"
	}

	logger := newLogger(level, format, outW)
	logger.Debug("Logger configured successfully.")

	w := worker.New(model.Worker.ID, worker.WithRegistry(ops.Default()))
	logger.Debug("Worker created.", "id", model.Worker.ID)
	for _, p := range model.Plans {
		logger.Info("Advertising plan declaration.", "plan", p.Name, "args", len(p.ArgShapes), "tags", p.Tags)
	}

	return &App{
		outW:   outW,
		logger: logger,
		model:  model,
		worker: w,
		listen: listen,
	}
}

// Worker returns the app's worker. This is primarily for testing.
func (a *App) Worker() *worker.Worker {
	return a.worker
}

// Run serves the worker over websocket until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	srv := &http.Server{
		Addr:        a.listen,
		Handler:     remote.NewServer(a.worker),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Worker serving.", "worker", a.worker.ID(), "listen", a.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("app: serving: %w", err)
	}
}
