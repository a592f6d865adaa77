// Package workers provides an async worker pool for background task execution.
// Each task type is served by an executor registered before Start.
package workers

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQueueFull is returned by TrySubmit when no queue slot is free.
	ErrQueueFull = errors.New("worker queue is full")

	// ErrPoolStopped is returned when submitting to a stopped pool.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type, selects the executor
	Payload interface{}     // Task payload
	Context context.Context // Task-specific context; nil means the pool context
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string        // ID of the executed task
	Error    error         // Error if execution failed
	Output   string        // Task output
	Duration time.Duration // Execution duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// TaskExecutor runs one task. Executors are always called, even with an
// already cancelled context, so they can record the outcome.
type TaskExecutor func(context.Context, Task) (string, error)

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 1
	DefaultQueueSize = 4
)
