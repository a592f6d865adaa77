// Package loop runs the conversation between the model and the tools until
// the model gives a final answer or the round limit is hit.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/tools"
)

var (
	// ErrLoopBoundExceeded means the model kept calling tools past MaxRounds.
	ErrLoopBoundExceeded = errors.New("agent loop exceeded maximum rounds")

	// ErrNoImage means the model finished without a successful image tool call.
	ErrNoImage = errors.New("agent finished without generating an image")
)

// Dispatcher runs one tool call. *tools.Dispatcher implements it.
type Dispatcher interface {
	Definitions() []llm.ToolDefinition
	Dispatch(ctx context.Context, call llm.ToolCall, task tools.Task) (string, error)
}

// Conversation is where the loop persists every message it adds.
type Conversation interface {
	Append(ctx context.Context, msgs ...llm.Message) error
	ReadAll(ctx context.Context) ([]llm.Message, error)
}

// Config holds configuration for the loop.
type Config struct {
	Provider    llm.Provider
	Dispatcher  Dispatcher
	Logger      *logger.Logger
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRounds   int

	// Now is used for the date in the system instruction
	Now func() time.Time
}

// Loop drives model rounds and tool calls for one seed at a time. A Loop is
// safe to share; all per-run state lives in Run.
type Loop struct {
	provider   llm.Provider
	dispatcher Dispatcher
	logger     *logger.Logger
	config     Config
}

// Input is one run of the loop.
type Input struct {
	JobID  string
	Seed   string
	Memory Conversation
}

// Result is the outcome of a successful run.
type Result struct {
	ImageURL     string
	FinalMessage string
	Rounds       int
}

// NewLoop creates a new execution loop.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("LLM provider cannot be nil")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("tool dispatcher cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 10
	}
	if cfg.Model == "" {
		cfg.Model = cfg.Provider.GetDefaultModel()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Loop{
		provider:   cfg.Provider,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		config:     cfg,
	}, nil
}

// MaxRounds returns the configured round limit.
func (l *Loop) MaxRounds() int {
	return l.config.MaxRounds
}

// Run seeds the conversation with in.Seed and alternates model turns and tool
// calls until the model answers without a tool call. The first error from the
// model, a tool or the memory ends the run.
func (l *Loop) Run(ctx context.Context, in Input) (*Result, error) {
	if in.Memory == nil {
		return nil, fmt.Errorf("conversation memory cannot be nil")
	}

	log := l.logger.With(logger.Field{Key: "job_id", Value: in.JobID})

	// Общая память может уже содержать историю предыдущих задач
	history, err := in.Memory.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	seed := llm.Message{Role: llm.RoleUser, Content: in.Seed}
	if err := in.Memory.Append(ctx, seed); err != nil {
		return nil, fmt.Errorf("failed to add user message: %w", err)
	}

	run := &runState{
		messages: append(history, seed),
		task:     tools.Task{JobID: in.JobID, UserMessage: in.Seed},
	}
	system := llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(l.config.Now())}
	catalog := l.dispatcher.Definitions()

	for round := 1; round <= l.config.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("agent loop interrupted at round %d: %w", round, err)
		}

		req := llm.ChatRequest{
			Messages:          append([]llm.Message{system}, run.messages...),
			Model:             l.config.Model,
			Temperature:       l.config.Temperature,
			MaxTokens:         l.config.MaxTokens,
			Tools:             catalog,
			ToolChoice:        llm.ToolChoiceAuto,
			ParallelToolCalls: llm.Bool(false),
		}

		resp, err := l.provider.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("LLM call failed: %w", err)
		}

		log.DebugCtx(ctx, "LLM response received",
			logger.Field{Key: "round", Value: round},
			logger.Field{Key: "finish_reason", Value: resp.FinishReason},
			logger.Field{Key: "tool_calls_count", Value: len(resp.ToolCalls)})

		if !resp.HasToolCalls() {
			final := resp.Message()
			if err := in.Memory.Append(ctx, final); err != nil {
				return nil, fmt.Errorf("failed to add assistant message: %w", err)
			}
			run.messages = append(run.messages, final)

			if run.imageURL == "" {
				return nil, ErrNoImage
			}

			log.InfoCtx(ctx, "agent loop finished",
				logger.Field{Key: "rounds", Value: round},
				logger.Field{Key: "image_url", Value: run.imageURL})
			return &Result{ImageURL: run.imageURL, FinalMessage: final.Content, Rounds: round}, nil
		}

		if err := l.executeToolCall(ctx, log, run, in.Memory, resp); err != nil {
			return nil, err
		}
	}

	log.WarnCtx(ctx, "maximum rounds reached",
		logger.Field{Key: "max_rounds", Value: l.config.MaxRounds})
	return nil, fmt.Errorf("%w (%d)", ErrLoopBoundExceeded, l.config.MaxRounds)
}
