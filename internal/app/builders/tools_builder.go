package builders

import (
	"fmt"
	"time"

	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/tools"
)

type ToolsBuilder struct {
	config   *config.Config
	logger   *logger.Logger
	images   llm.ImageGenerator
	observer tools.Observer
}

func NewToolsBuilder(cfg *config.Config, log *logger.Logger, images llm.ImageGenerator, observer tools.Observer) *ToolsBuilder {
	return &ToolsBuilder{
		config:   cfg,
		logger:   log,
		images:   images,
		observer: observer,
	}
}

// Build creates the catalog, a client for every collaborator and the
// dispatcher over them. It fails if any tool kind is left unserved.
func (b *ToolsBuilder) Build() (*tools.Dispatcher, error) {
	cfg := b.config.Tools
	if b.images == nil {
		return nil, fmt.Errorf("image generator cannot be nil")
	}

	registry, err := tools.NewRegistry(tools.RegistryConfig{WeatherLocation: cfg.Weather.Location})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	cooldown := time.Duration(cfg.BreakerCooldownSeconds) * time.Second
	httpCfg := tools.HTTPConfig{
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cooldown,
	}

	handlers := tools.Handlers{
		Weather: tools.NewWeatherClient(tools.WeatherConfig{
			BaseURL:  cfg.Weather.BaseURL,
			APIKey:   cfg.Weather.APIKey,
			Location: cfg.Weather.Location,
			HTTP:     httpCfg,
		}),
		Image: tools.NewImageTool(b.images, cfg.BreakerThreshold, cooldown),
		Feed: tools.NewFeedClient(tools.FeedConfig{
			URL:       cfg.Feed.URL,
			UserAgent: cfg.Feed.UserAgent,
			HTTP:      httpCfg,
		}),
		Joke: tools.NewJokeClient(tools.JokeConfig{
			URL:  cfg.Joke.URL,
			HTTP: httpCfg,
		}),
	}

	dispatcher, err := tools.NewDispatcher(registry, handlers, b.logger, b.observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool dispatcher: %w", err)
	}

	names := make([]string, 0, len(tools.Kinds()))
	for _, k := range tools.Kinds() {
		names = append(names, k.String())
	}
	b.logger.Info("tools registered", logger.Field{Key: "tools", Value: names})
	return dispatcher, nil
}
