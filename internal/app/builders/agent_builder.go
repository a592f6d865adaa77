package builders

import (
	"fmt"

	"github.com/aatumaykin/morningbrew/internal/agent/loop"
	"github.com/aatumaykin/morningbrew/internal/agent/memory"
	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
)

type AgentBuilder struct {
	config   *config.Config
	logger   *logger.Logger
	provider llm.Provider
}

func NewAgentBuilder(cfg *config.Config, log *logger.Logger, provider llm.Provider) *AgentBuilder {
	return &AgentBuilder{
		config:   cfg,
		logger:   log,
		provider: provider,
	}
}

func (b *AgentBuilder) BuildLoop(dispatcher loop.Dispatcher) (*loop.Loop, error) {
	agentLoop, err := loop.NewLoop(loop.Config{
		Provider:    b.provider,
		Dispatcher:  dispatcher,
		Logger:      b.logger,
		Model:       b.config.Agent.Model,
		Temperature: b.config.Agent.Temperature,
		MaxTokens:   b.config.Agent.MaxTokens,
		MaxRounds:   b.config.Agent.MaxRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent loop: %w", err)
	}
	return agentLoop, nil
}

func (b *AgentBuilder) BuildMemory() (*memory.Manager, error) {
	manager, err := memory.NewManager(b.config.Memory.Dir, b.config.Memory.Shared)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation memory: %w", err)
	}
	b.logger.Info("conversation memory ready",
		logger.Field{Key: "dir", Value: b.config.Memory.Dir},
		logger.Field{Key: "shared", Value: b.config.Memory.Shared})
	return manager, nil
}
