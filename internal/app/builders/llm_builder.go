package builders

import (
	"fmt"
	"time"

	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/retry"
)

// ModelService is a chat model that can also draw images.
type ModelService interface {
	llm.Provider
	llm.ImageGenerator
}

type LLMBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewLLMBuilder(cfg *config.Config, log *logger.Logger) *LLMBuilder {
	return &LLMBuilder{
		config: cfg,
		logger: log,
	}
}

func (b *LLMBuilder) Build() (ModelService, error) {
	switch b.config.LLM.Provider {
	case config.ProviderOpenAI:
		provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:     b.config.LLM.APIKey,
			BaseURL:    b.config.LLM.BaseURL,
			Model:      b.config.Agent.Model,
			ImageModel: b.config.Tools.Image.Model,
			ImageSize:  b.config.Tools.Image.Size,
			Timeout:    time.Duration(b.config.LLM.TimeoutSeconds) * time.Second,
			Retry:      retry.Config{MaxAttempts: b.config.LLM.MaxAttempts},
		}, b.logger)
		b.logger.Info("LLM provider initialized",
			logger.Field{Key: "provider", Value: config.ProviderOpenAI},
			logger.Field{Key: "model", Value: provider.GetDefaultModel()})
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", b.config.LLM.Provider)
	}
}
