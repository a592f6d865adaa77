// Package retry runs calls to external services with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/morningbrew/internal/logger"
)

const (
	defaultMaxAttempts  = 1
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config описывает политику повторов. MaxAttempts = 1 означает один вызов без повторов.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *logger.Logger
}

// Temporary is implemented by errors that know whether a retry may succeed.
type Temporary interface {
	Temporary() bool
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.MaxAttempts == 1 {
			return zero, err
		}

		if !IsRetryable(err) {
			log.DebugCtx(ctx, "non-retryable error", logger.Field{Key: "error", Value: err.Error()})
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		log.WarnCtx(ctx, "retrying after error",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_attempts", Value: cfg.MaxAttempts},
			logger.Field{Key: "backoff", Value: backoff.String()},
			logger.Field{Key: "error", Value: err.Error()})

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// IsRetryable reports whether err looks transient: timeouts, dropped
// connections, 429 and 5xx responses. Cancellation and 4xx are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var tmp Temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"401", "403", "400", "404"} {
		if strings.Contains(msg, "status "+pattern) || strings.Contains(msg, "status code: "+pattern) {
			return false
		}
	}

	for _, pattern := range []string{
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"temporary failure",
		"eof",
		"too many requests",
		"rate limit",
		"bad gateway",
		"service unavailable",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// calculateBackoff возвращает 2^attempt * initial, но не больше max
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max || backoff <= 0 {
		return max
	}
	return backoff
}
