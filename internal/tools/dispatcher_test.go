package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/morningbrew/internal/llm"
)

type stubWeather struct {
	temp string
	err  error
}

func (s stubWeather) CurrentTemperature(context.Context) (string, error) { return s.temp, s.err }

type stubImage struct {
	url    string
	err    error
	prompt *string
}

func (s stubImage) GenerateImage(_ context.Context, prompt string) (string, error) {
	if s.prompt != nil {
		*s.prompt = prompt
	}
	return s.url, s.err
}

type stubFeed struct{ posts []FeedPost }

func (s stubFeed) LatestPosts(context.Context) ([]FeedPost, error) { return s.posts, nil }

type stubJoke struct{}

func (stubJoke) RandomJoke(context.Context) (string, error) { return "I'm afraid for the calendar.", nil }

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveToolCall(tool, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, tool+":"+status)
}

func newTestDispatcher(t *testing.T, h Handlers, obs Observer) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(newTestRegistry(t), h, nil, obs)
	require.NoError(t, err)
	return d
}

func fullHandlers() Handlers {
	return Handlers{
		Weather: stubWeather{temp: "7"},
		Image:   stubImage{url: "https://img.example/cup.png"},
		Feed:    stubFeed{posts: []FeedPost{{Title: "Espresso", Link: "https://r/1", SourceName: "r/cafeluta"}}},
		Joke:    stubJoke{},
	}
}

func TestNewDispatcher_FailsOnMissingHandler(t *testing.T) {
	h := fullHandlers()
	h.Image = nil

	_, err := NewDispatcher(newTestRegistry(t), h, nil, nil)
	assert.Error(t, err)

	_, err = NewDispatcher(nil, h, nil, nil)
	assert.Error(t, err)
}

func TestDispatcher_Dispatch(t *testing.T) {
	var prompt string
	h := fullHandlers()
	h.Image = stubImage{url: "https://img.example/cup.png", prompt: &prompt}
	obs := &recordingObserver{}
	d := newTestDispatcher(t, h, obs)
	ctx := context.Background()
	task := Task{JobID: "job-1", UserMessage: "a fox barista"}

	got, err := d.Dispatch(ctx, llm.ToolCall{ID: "1", Name: "weather", Arguments: "{}"}, task)
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	got, err = d.Dispatch(ctx, llm.ToolCall{ID: "2", Name: "generate_image", Arguments: `{"prompt":"cup at 7C"}`}, task)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/cup.png", got)
	assert.Equal(t, "cup at 7C", prompt)

	got, err = d.Dispatch(ctx, llm.ToolCall{ID: "3", Name: "reddit"}, task)
	require.NoError(t, err)
	var posts []map[string]string
	require.NoError(t, json.Unmarshal([]byte(got), &posts))
	assert.Equal(t, map[string]string{"title": "Espresso", "link": "https://r/1", "sourceName": "r/cafeluta"}, posts[0])
	assert.Contains(t, got, "\n  {", "indented with two spaces")

	got, err = d.Dispatch(ctx, llm.ToolCall{ID: "4", Name: "dad_joke"}, task)
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	assert.Equal(t, []string{"weather:ok", "generate_image:ok", "reddit:ok", "dad_joke:ok"}, obs.calls)
}

func TestDispatcher_UnknownToolHasNoSideEffects(t *testing.T) {
	called := false
	h := fullHandlers()
	h.Weather = weatherFunc(func() (string, error) {
		called = true
		return "1", nil
	})
	obs := &recordingObserver{}
	d := newTestDispatcher(t, h, obs)

	_, err := d.Dispatch(context.Background(), llm.ToolCall{ID: "x", Name: "weather_v2"}, Task{})
	require.ErrorIs(t, err, ErrUnknownTool)
	assert.False(t, called)
	assert.Equal(t, []string{"weather_v2:rejected"}, obs.calls)
}

func TestDispatcher_PropagatesHandlerError(t *testing.T) {
	h := fullHandlers()
	h.Weather = stubWeather{err: &ExternalServiceError{Service: "weatherstack", StatusCode: 503, Err: errors.New("down")}}
	d := newTestDispatcher(t, h, nil)

	_, err := d.Dispatch(context.Background(), llm.ToolCall{ID: "1", Name: "weather"}, Task{})
	require.Error(t, err)
	assert.True(t, IsExternalServiceError(err))
	assert.Contains(t, err.Error(), "tool weather")
}

type weatherFunc func() (string, error)

func (f weatherFunc) CurrentTemperature(context.Context) (string, error) { return f() }
