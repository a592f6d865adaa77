// Package llm defines the chat and image model service used by the agent
// loop and an OpenAI-backed implementation of it.
package llm

import (
	"context"
)

// Provider is a chat completion service with tool calling.
type Provider interface {
	// Chat sends the whole conversation and returns the next assistant turn.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// GetDefaultModel returns the model used when the request leaves Model empty.
	GetDefaultModel() string
}

// ImageGenerator turns a prompt into a hosted image URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool invocations
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is set on tool messages and names the call they answer
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// FinishReason indicates why the model stopped generating tokens.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
)

// ToolCall is a structured request from the model to run a tool.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is the raw JSON object produced by the model
	Arguments string `json:"arguments"`
}

// Usage tracks token usage information for the request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ChatRequest is a single round trip to the model.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`

	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice ToolChoice       `json:"tool_choice,omitempty"`

	// ParallelToolCalls nil leaves the provider default
	ParallelToolCalls *bool `json:"parallel_tool_calls,omitempty"`
}

// ToolDefinition is what the model sees of a tool.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Parameters is a JSON Schema object describing the arguments
	Parameters map[string]any `json:"parameters"`
}

// ChatResponse is the assistant turn returned by the model.
type ChatResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	ToolCalls    []ToolCall   `json:"tool_calls"`
	Usage        Usage        `json:"usage"`
	Model        string       `json:"model"`
}

// Message converts the response into the assistant message to record.
func (r *ChatResponse) Message() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Content,
		ToolCalls: r.ToolCalls,
	}
}

// HasToolCalls reports whether the model asked for at least one tool.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Bool returns a pointer to b, for optional request flags.
func Bool(b bool) *bool {
	return &b
}
