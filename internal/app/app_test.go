package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/llm"
	"github.com/aatumaykin/morningbrew/internal/logger"
)

const testImage = "https://images.example/cup.png"

// Helper function to create test logger
func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	cfg := logger.Config{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}
	log, err := logger.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

// Helper function to create test config
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.HeartbeatSeconds = -1
	cfg.Server.ShutdownTimeoutSeconds = 1
	cfg.Memory.Dir = filepath.Join(t.TempDir(), "memory")
	cfg.LLM.APIKey = "sk-test-0123456789"
	return cfg
}

func scriptedModel() *llm.ScriptedProvider {
	return llm.NewScriptedProvider(
		llm.CallTool(llm.ToolCall{ID: "call_1", Name: "generate_image", Arguments: `{"prompt":"a corgi next to a steaming cup"}`}),
		llm.Reply("Enjoy your coffee."),
	).WithImages(testImage)
}

func TestApp_New(t *testing.T) {
	cfg := createTestConfig(t)
	log := createTestLogger(t)
	model := scriptedModel()

	a := New(cfg, log, WithModel(model))
	require.NotNil(t, a)
	assert.Equal(t, cfg, a.config)
	assert.Equal(t, log, a.logger)
	assert.Equal(t, model, a.model)
	assert.Nil(t, a.Handler())
	assert.NoError(t, a.Shutdown(), "shutdown before initialize is a no-op")
}

func TestApp_EndToEnd(t *testing.T) {
	a := New(createTestConfig(t), createTestLogger(t), WithModel(scriptedModel()))
	require.NoError(t, a.Initialize(context.Background()))
	t.Cleanup(func() { _ = a.Shutdown() })

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/start", "application/json", nil)
	require.NoError(t, err)
	var started struct {
		JobID       string `json:"jobId"`
		UserMessage string `json:"userMessage"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, started.JobID)
	assert.NotContains(t, started.UserMessage, ".")

	stream, err := http.Get(srv.URL + "/api/stream/" + started.JobID)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	var body strings.Builder
	buf := make([]byte, 512)
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(body.String(), "data: ") && time.Now().Before(deadline) {
		n, err := stream.Body.Read(buf)
		body.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, body.String(), `data: {"status":"done","imageUrl":"`+testImage+`"}`)

	job, err := a.Jobs().Get(started.JobID)
	require.NoError(t, err)
	assert.Equal(t, testImage, job.ResultURL)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	var exposition strings.Builder
	_, _ = io.Copy(&exposition, metrics.Body)
	assert.Contains(t, exposition.String(), "morningbrew_jobs_started_total 1")
	assert.Contains(t, exposition.String(), `morningbrew_tool_calls_total{status="ok",tool="generate_image"} 1`)
}

func TestApp_InitializeTwice(t *testing.T) {
	a := New(createTestConfig(t), createTestLogger(t), WithModel(scriptedModel()))
	require.NoError(t, a.Initialize(context.Background()))
	defer a.Shutdown()

	assert.Error(t, a.Initialize(context.Background()))
}

func TestApp_InitializeErrors(t *testing.T) {
	t.Run("unsupported provider", func(t *testing.T) {
		cfg := createTestConfig(t)
		cfg.LLM.Provider = "zai"

		err := New(cfg, createTestLogger(t)).Initialize(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})

	t.Run("bad sweep schedule", func(t *testing.T) {
		cfg := createTestConfig(t)
		cfg.Jobs.SweepSchedule = "every tuesday"

		err := New(cfg, createTestLogger(t), WithModel(scriptedModel())).Initialize(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid sweep schedule")
	})
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := New(createTestConfig(t), createTestLogger(t), WithModel(scriptedModel()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, a.started)
}
