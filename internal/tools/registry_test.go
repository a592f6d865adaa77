package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/morningbrew/internal/llm"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(RegistryConfig{WeatherLocation: "Iasi"})
	require.NoError(t, err)
	return r
}

func TestKind_RoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}

	_, ok := ParseKind("shell")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestRegistry_Definitions(t *testing.T) {
	defs := newTestRegistry(t).Definitions()
	require.Len(t, defs, 4)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
		assert.Equal(t, "object", d.Parameters["type"], d.Name)
		assert.Contains(t, d.Parameters, "properties", d.Name)
		assert.NotContains(t, d.Parameters, "$schema", d.Name)
	}
	assert.Equal(t, []string{"generate_image", "reddit", "dad_joke", "weather"}, names)

	image := defs[0]
	props := image.Parameters["properties"].(map[string]any)
	prompt := props["prompt"].(map[string]any)
	assert.Equal(t, "string", prompt["type"])
	assert.Contains(t, prompt["description"], "user's original message")
	assert.Equal(t, []any{"prompt"}, image.Parameters["required"])

	assert.Equal(t, "use this to get the weather for today in Iasi", defs[3].Description)
}

func TestRegistry_Decode(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		call    llm.ToolCall
		want    Call
		wantErr error
	}{
		{name: "weather empty object", call: llm.ToolCall{Name: "weather", Arguments: "{}"}, want: WeatherCall{}},
		{name: "weather empty string", call: llm.ToolCall{Name: "weather", Arguments: ""}, want: WeatherCall{}},
		{name: "image with prompt", call: llm.ToolCall{Name: "generate_image", Arguments: `{"prompt":"a cup"}`}, want: ImageCall{Prompt: "a cup"}},
		{name: "feed", call: llm.ToolCall{Name: "reddit", Arguments: "{}"}, want: FeedCall{}},
		{name: "joke", call: llm.ToolCall{Name: "dad_joke", Arguments: "{}"}, want: JokeCall{}},
		{name: "unknown tool", call: llm.ToolCall{Name: "shell", Arguments: "{}"}, wantErr: ErrUnknownTool},
		{name: "image missing prompt", call: llm.ToolCall{Name: "generate_image", Arguments: "{}"}, wantErr: ErrInvalidArguments},
		{name: "image empty prompt", call: llm.ToolCall{Name: "generate_image", Arguments: `{"prompt":""}`}, wantErr: ErrInvalidArguments},
		{name: "image wrong type", call: llm.ToolCall{Name: "generate_image", Arguments: `{"prompt":42}`}, wantErr: ErrInvalidArguments},
		{name: "extra field", call: llm.ToolCall{Name: "weather", Arguments: `{"city":"Paris"}`}, wantErr: ErrInvalidArguments},
		{name: "malformed json", call: llm.ToolCall{Name: "reddit", Arguments: `{`}, wantErr: ErrInvalidArguments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Decode(tt.call)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.call.Name, got.Kind().String())
		})
	}
}

func TestRegistry_UnknownToolMessage(t *testing.T) {
	_, err := newTestRegistry(t).Decode(llm.ToolCall{Name: "teleport"})

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, CodeUnknownTool, te.Code)
	assert.Equal(t, "Unknown tool: teleport", te.Error())
}

func TestRegistry_Check(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Check(Handlers{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather (handler)")

	full := Handlers{Weather: stubWeather{}, Image: stubImage{}, Feed: stubFeed{}, Joke: stubJoke{}}
	assert.NoError(t, r.Check(full))

	partial := full
	partial.Joke = nil
	err = r.Check(partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dad_joke (handler)")
}

func TestRegistry_RejectsDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	def, ok := r.Get(KindWeather)
	require.True(t, ok)
	assert.Error(t, r.register(def))
}
