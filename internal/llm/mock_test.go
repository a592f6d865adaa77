package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedProvider_ReplaysSteps(t *testing.T) {
	boom := errors.New("boom")
	p := NewScriptedProvider(
		CallTool(ToolCall{ID: "1", Name: "weather", Arguments: "{}"}),
		Reply("done"),
		Fail(boom),
	)
	ctx := context.Background()

	resp, err := p.Chat(ctx, ChatRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "a"}}})
	require.NoError(t, err)
	assert.True(t, resp.HasToolCalls())
	assert.Equal(t, "m", resp.Model)

	resp, err = p.Chat(ctx, ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, RoleAssistant, resp.Message().Role)

	_, err = p.Chat(ctx, ChatRequest{})
	assert.ErrorIs(t, err, boom)

	_, err = p.Chat(ctx, ChatRequest{})
	assert.Error(t, err, "script exhausted")

	assert.Len(t, p.Requests(), 4)
	assert.Equal(t, 0, p.Remaining())
}

func TestScriptedProvider_RequestsAreCopied(t *testing.T) {
	p := NewScriptedProvider(Reply("ok"))
	msgs := []Message{{Role: RoleUser, Content: "original"}}

	_, err := p.Chat(context.Background(), ChatRequest{Messages: msgs})
	require.NoError(t, err)

	msgs[0].Content = "mutated"
	assert.Equal(t, "original", p.Requests()[0].Messages[0].Content)
}

func TestScriptedProvider_Images(t *testing.T) {
	p := NewScriptedProvider().WithImages("https://a/1.png")
	ctx := context.Background()

	url, err := p.GenerateImage(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "https://a/1.png", url)

	_, err = p.GenerateImage(ctx, "x")
	assert.ErrorIs(t, err, ErrNoImageData)
}

func TestScriptedProvider_CancelledContext(t *testing.T) {
	p := NewScriptedProvider(Reply("never"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Chat(ctx, ChatRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Remaining())
}
