package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedProvider replays a fixed sequence of chat turns. It is used by
// tests and by local runs without credentials.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []Step
	requests []ChatRequest
	images   []string
	imageErr error
}

// Step is one scripted reply: either a response or an error.
type Step struct {
	Response *ChatResponse
	Err      error
}

// NewScriptedProvider returns a provider that answers with steps in order.
func NewScriptedProvider(steps ...Step) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// Reply is a step that ends the conversation with plain text.
func Reply(content string) Step {
	return Step{Response: &ChatResponse{Content: content, FinishReason: FinishReasonStop}}
}

// CallTool is a step that requests the given tool calls.
func CallTool(calls ...ToolCall) Step {
	return Step{Response: &ChatResponse{ToolCalls: calls, FinishReason: FinishReasonToolCalls}}
}

// Fail is a step that makes Chat return err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Chat implements Provider.
func (s *ScriptedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, cloneRequest(req))

	if len(s.steps) == 0 {
		return nil, fmt.Errorf("scripted provider: no step left for call %d", len(s.requests))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]

	if step.Err != nil {
		return nil, step.Err
	}
	resp := *step.Response
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// GetDefaultModel implements Provider.
func (s *ScriptedProvider) GetDefaultModel() string {
	return "scripted-model"
}

// WithImages makes GenerateImage return urls in order.
func (s *ScriptedProvider) WithImages(urls ...string) *ScriptedProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, urls...)
	return s
}

// WithImageError makes GenerateImage fail with err.
func (s *ScriptedProvider) WithImageError(err error) *ScriptedProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageErr = err
	return s
}

// GenerateImage implements ImageGenerator.
func (s *ScriptedProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.imageErr != nil {
		return "", s.imageErr
	}
	if len(s.images) == 0 {
		return "", ErrNoImageData
	}
	url := s.images[0]
	s.images = s.images[1:]
	return url, nil
}

// Requests returns a copy of every request received so far.
func (s *ScriptedProvider) Requests() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Remaining returns how many scripted steps are still unused.
func (s *ScriptedProvider) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

func cloneRequest(req ChatRequest) ChatRequest {
	msgs := make([]Message, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	return req
}
