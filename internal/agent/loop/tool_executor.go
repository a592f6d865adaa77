package loop

import (
	"context"
	"fmt"

	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/tools"
)

// runState is the in-memory conversation of a single run.
type runState struct {
	messages []llm.Message
	task     tools.Task
	imageURL string
}

// executeToolCall records the assistant turn, runs its tool call and records
// the answer. Only the first call is kept so every tool message answers
// exactly one open call.
func (l *Loop) executeToolCall(ctx context.Context, log *logger.Logger, run *runState, mem Conversation, resp *llm.ChatResponse) error {
	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		log.WarnCtx(ctx, "model returned several tool calls, keeping the first",
			logger.Field{Key: "tool_calls_count", Value: len(resp.ToolCalls)},
			logger.Field{Key: "tool", Value: call.Name})
	}

	assistant := llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: []llm.ToolCall{call},
	}

	result, err := l.dispatcher.Dispatch(ctx, call, run.task)
	if err != nil {
		return err
	}

	answer := llm.Message{
		Role:       llm.RoleTool,
		Content:    result,
		ToolCallID: call.ID,
	}

	if err := mem.Append(ctx, assistant, answer); err != nil {
		return fmt.Errorf("failed to add tool result: %w", err)
	}
	run.messages = append(run.messages, assistant, answer)

	if call.Name == tools.KindGenerateImage.String() {
		run.imageURL = result
	}

	return nil
}
