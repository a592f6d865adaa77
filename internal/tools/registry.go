package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aatumaykin/morningbrew/internal/llm"
)

// Definition is a tool as advertised to the model, plus what is needed to
// turn the model's raw arguments back into a typed Call.
type Definition struct {
	Kind        Kind
	Description string
	Parameters  map[string]any

	schema *jsonschema.Schema
	decode func([]byte) (Call, error)
}

// RegistryConfig feeds the parts of tool descriptions that depend on deployment.
type RegistryConfig struct {
	WeatherLocation string
}

// Registry is the tool catalog. It is built once at startup and read-only
// afterwards.
type Registry struct {
	mu          sync.RWMutex
	definitions map[Kind]Definition
}

// NewRegistry builds the catalog for every Kind.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.WeatherLocation == "" {
		cfg.WeatherLocation = "Iasi"
	}

	r := &Registry{definitions: make(map[Kind]Definition)}

	defs := []func() (Definition, error){
		func() (Definition, error) {
			return define[WeatherCall](fmt.Sprintf("use this to get the weather for today in %s", cfg.WeatherLocation))
		},
		func() (Definition, error) { return define[ImageCall]("generate an image") },
		func() (Definition, error) { return define[FeedCall]("get the latest posts from reddit") },
		func() (Definition, error) { return define[JokeCall]("get a random dad joke") },
	}
	for _, build := range defs {
		def, err := build()
		if err != nil {
			return nil, err
		}
		if err := r.register(def); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Kind]; exists {
		return fmt.Errorf("tool %s registered twice", def.Kind)
	}
	r.definitions[def.Kind] = def
	return nil
}

// Get returns the definition registered for kind.
func (r *Registry) Get(kind Kind) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[kind]
	return def, ok
}

// Definitions returns the catalog in the form sent to the model, in stable order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]llm.ToolDefinition, 0, len(r.definitions))
	for _, kind := range Kinds() {
		def, ok := r.definitions[kind]
		if !ok {
			continue
		}
		out = append(out, llm.ToolDefinition{
			Name:        kind.String(),
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return out
}

// Check verifies that every kind has a definition and a handler. It is run
// once at startup so a gap fails the process instead of a job.
func (r *Registry) Check(h Handlers) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, kind := range Kinds() {
		if _, ok := r.definitions[kind]; !ok {
			missing = append(missing, kind.String()+" (definition)")
		}
		if !h.has(kind) {
			missing = append(missing, kind.String()+" (handler)")
		}
	}
	if len(r.definitions) != len(Kinds()) {
		missing = append(missing, fmt.Sprintf("%d definitions for %d kinds", len(r.definitions), len(Kinds())))
	}

	if len(missing) > 0 {
		return fmt.Errorf("tool registry incomplete: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Decode resolves the tool by name, validates the arguments against its
// schema and returns the typed call. It never touches a collaborator.
func (r *Registry) Decode(tc llm.ToolCall) (Call, error) {
	kind, ok := ParseKind(tc.Name)
	if !ok {
		return nil, newUnknownToolError(tc.Name)
	}
	def, ok := r.Get(kind)
	if !ok {
		return nil, newUnknownToolError(tc.Name)
	}

	raw := []byte(strings.TrimSpace(tc.Arguments))
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, newInvalidArgumentsError(tc.Name, err)
	}
	if err := def.schema.Validate(decoded); err != nil {
		return nil, newInvalidArgumentsError(tc.Name, err)
	}

	call, err := def.decode(raw)
	if err != nil {
		return nil, newInvalidArgumentsError(tc.Name, err)
	}
	return call, nil
}

var reflector = &invopop.Reflector{
	Anonymous:      true,
	DoNotReference: true,
	ExpandedStruct: true,
}

// define reflects the JSON schema of C, compiles it for validation and
// keeps a decoder that produces C.
func define[C Call](description string) (Definition, error) {
	var zero C
	kind := zero.Kind()

	raw, err := json.Marshal(reflector.Reflect(&zero))
	if err != nil {
		return Definition{}, fmt.Errorf("reflect schema for %s: %w", kind, err)
	}

	compiled, err := jsonschema.CompileString(kind.String()+".schema.json", string(raw))
	if err != nil {
		return Definition{}, fmt.Errorf("compile schema for %s: %w", kind, err)
	}

	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return Definition{}, fmt.Errorf("decode schema for %s: %w", kind, err)
	}
	// Модели достаточно самой схемы аргументов
	delete(params, "$schema")
	delete(params, "$id")
	if _, ok := params["properties"]; !ok {
		params["properties"] = map[string]any{}
	}

	return Definition{
		Kind:        kind,
		Description: description,
		Parameters:  params,
		schema:      compiled,
		decode: func(data []byte) (Call, error) {
			var c C
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&c); err != nil {
				return nil, err
			}
			return c, nil
		},
	}, nil
}
