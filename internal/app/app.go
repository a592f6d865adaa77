// Package app provides the main application structure for morningbrew.
// It wires the model service, tools, agent loop, job scheduling, rate
// limiting and the HTTP surface, and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/aatumaykin/morningbrew/internal/app/builders"
	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/jobs"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/service"
	"github.com/aatumaykin/morningbrew/internal/workers"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config *config.Config
	logger *logger.Logger

	// model overrides the configured provider
	model builders.ModelService

	// Job execution
	store      *jobs.Store
	service    *service.Service
	workerPool *workers.WorkerPool
	janitor    *jobs.Janitor

	// Shared backend, nil when nothing uses Redis
	redis *redis.Client

	// HTTP surface
	handler http.Handler
	server  *http.Server

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Thread-safety
	mu      sync.RWMutex
	started bool
}

// Option customizes an App.
type Option func(*App)

// WithModel replaces the provider built from configuration.
func WithModel(m builders.ModelService) Option {
	return func(a *App) {
		a.model = m
	}
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run initializes the application, serves HTTP and blocks until ctx is
// cancelled or the listener fails, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", logger.Field{Key: "addr", Value: a.server.Addr})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.logger.Info("Application is running")

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	if err := a.Shutdown(); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// Handler returns the HTTP handler. It is nil before Initialize.
func (a *App) Handler() http.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handler
}

// Jobs returns the job store. It is nil before Initialize.
func (a *App) Jobs() *jobs.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}
