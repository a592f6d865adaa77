package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/retry"
)

const providerName = "openai"

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // пусто = api.openai.com
	Model      string
	ImageModel string
	ImageSize  string
	Timeout    time.Duration
	Retry      retry.Config
}

// OpenAIProvider talks to OpenAI chat completions and image generation.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
	logger *logger.Logger
}

// NewOpenAIProvider builds a provider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig, log *logger.Logger) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = openai.CreateImageSize1024x1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	cfg.Retry.Logger = log

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: log,
	}
}

// GetDefaultModel implements Provider.
func (p *OpenAIProvider) GetDefaultModel() string {
	return p.config.Model
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if chatReq.Model == "" {
		chatReq.Model = p.config.Model
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toOpenAITools(req.Tools)
		if req.ToolChoice != "" {
			chatReq.ToolChoice = string(req.ToolChoice)
		}
		if req.ParallelToolCalls != nil {
			chatReq.ParallelToolCalls = *req.ParallelToolCalls
		}
	}

	start := time.Now()
	resp, err := retry.Do(ctx, p.config.Retry, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return resp, wrapError("chat", err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: providerName, Op: "chat", Err: ErrEmptyResponse}
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: FinishReason(choice.FinishReason),
		Model:        resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	p.logger.DebugCtx(ctx, "chat completion received",
		logger.Field{Key: "model", Value: out.Model},
		logger.Field{Key: "finish_reason", Value: out.FinishReason},
		logger.Field{Key: "tool_calls", Value: len(out.ToolCalls)},
		logger.Field{Key: "total_tokens", Value: out.Usage.TotalTokens},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})

	return out, nil
}

// GenerateImage implements ImageGenerator and returns the hosted image URL.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.config.ImageModel,
		N:              1,
		Size:           p.config.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}

	resp, err := retry.Do(ctx, p.config.Retry, func(ctx context.Context) (openai.ImageResponse, error) {
		resp, err := p.client.CreateImage(ctx, req)
		if err != nil {
			return resp, wrapError("image", err)
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", &ProviderError{Provider: providerName, Op: "image", Err: ErrNoImageData}
	}

	return resp.Data[0].URL, nil
}

func wrapError(op string, err error) error {
	pe := &ProviderError{Provider: providerName, Op: op, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}

	return pe
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if len(msg.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		result = append(result, oaiMsg)
	}
	return result
}

func toOpenAITools(defs []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))
	for i, def := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return result
}

// String is used in startup logs.
func (p *OpenAIProvider) String() string {
	return fmt.Sprintf("%s(model=%s, image_model=%s)", providerName, p.config.Model, p.config.ImageModel)
}
