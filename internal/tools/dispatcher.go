package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
)

// WeatherSource reports the current temperature.
type WeatherSource interface {
	CurrentTemperature(ctx context.Context) (string, error)
}

// FeedSource lists recent posts.
type FeedSource interface {
	LatestPosts(ctx context.Context) ([]FeedPost, error)
}

// JokeSource returns a joke.
type JokeSource interface {
	RandomJoke(ctx context.Context) (string, error)
}

// Handlers binds every Kind to the collaborator that serves it.
type Handlers struct {
	Weather WeatherSource
	Image   llm.ImageGenerator
	Feed    FeedSource
	Joke    JokeSource
}

func (h Handlers) has(kind Kind) bool {
	switch kind {
	case KindWeather:
		return h.Weather != nil
	case KindGenerateImage:
		return h.Image != nil
	case KindFeed:
		return h.Feed != nil
	case KindJoke:
		return h.Joke != nil
	default:
		return false
	}
}

// Task carries what a tool invocation knows about the job it serves.
type Task struct {
	JobID       string
	UserMessage string
}

// Observer receives one notification per dispatched call.
type Observer interface {
	ObserveToolCall(tool, status string, d time.Duration)
}

// Dispatcher routes a model tool call to its handler.
type Dispatcher struct {
	registry *Registry
	handlers Handlers
	logger   *logger.Logger
	observer Observer
}

// NewDispatcher checks the registry against handlers and fails if any kind
// is left without a definition or handler.
func NewDispatcher(registry *Registry, handlers Handlers, log *logger.Logger, observer Observer) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if err := registry.Check(handlers); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{registry: registry, handlers: handlers, logger: log, observer: observer}, nil
}

// Definitions returns the tool catalog for the model.
func (d *Dispatcher) Definitions() []llm.ToolDefinition {
	return d.registry.Definitions()
}

// Dispatch validates tc, runs the matching handler and returns its textual
// result. Unknown tools and bad arguments fail before any handler runs.
func (d *Dispatcher) Dispatch(ctx context.Context, tc llm.ToolCall, task Task) (string, error) {
	start := time.Now()

	call, err := d.registry.Decode(tc)
	if err != nil {
		d.observe(tc.Name, "rejected", start)
		return "", err
	}

	log := d.logger.With(
		logger.Field{Key: "job_id", Value: task.JobID},
		logger.Field{Key: "tool", Value: tc.Name},
		logger.Field{Key: "tool_call_id", Value: tc.ID})
	log.DebugCtx(ctx, "dispatching tool call")

	result, err := d.run(ctx, call)
	if err != nil {
		d.observe(tc.Name, "error", start)
		log.WarnCtx(ctx, "tool call failed",
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
		return "", fmt.Errorf("tool %s: %w", tc.Name, err)
	}

	d.observe(tc.Name, "ok", start)
	log.InfoCtx(ctx, "tool call completed",
		logger.Field{Key: "result_length", Value: len(result)},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, call Call) (string, error) {
	switch c := call.(type) {
	case WeatherCall:
		return d.handlers.Weather.CurrentTemperature(ctx)

	case ImageCall:
		return d.handlers.Image.GenerateImage(ctx, c.Prompt)

	case FeedCall:
		posts, err := d.handlers.Feed.LatestPosts(ctx)
		if err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(posts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode posts: %w", err)
		}
		return string(data), nil

	case JokeCall:
		return d.handlers.Joke.RandomJoke(ctx)

	default:
		return "", newUnknownToolError(call.Kind().String())
	}
}

func (d *Dispatcher) observe(tool, status string, start time.Time) {
	if d.observer != nil {
		d.observer.ObserveToolCall(tool, status, time.Since(start))
	}
}
