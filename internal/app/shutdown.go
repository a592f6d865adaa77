package app

import (
	"context"
	"errors"
	"time"
)

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Stops accepting HTTP requests and waits for open streams
//  2. Cancels the application context, which stops the janitor
//  3. Stops the worker pool, finishing the running job
//  4. Closes the Redis connection
//
// The method is thread-safe and can be called more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	var errs []error

	if a.server != nil {
		timeout := time.Duration(a.config.Server.ShutdownTimeoutSeconds) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.server.Shutdown(ctx); err != nil {
			// открытые SSE потоки не дождались своего job
			a.logger.Warn("HTTP server did not drain in time, closing connections")
			if closeErr := a.server.Close(); closeErr != nil {
				errs = append(errs, closeErr)
			}
		}
		cancel()
	}

	a.cancel()

	if a.workerPool != nil {
		a.logger.Info("Stopping worker pool")
		a.workerPool.Stop()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("Failed to close redis connection", err)
			errs = append(errs, err)
		}
	}

	a.started = false
	a.logger.Info("Application shutdown complete")

	return errors.Join(errs...)
}
