// Package tools holds the closed set of tools the agent may call, their
// argument schemas, the handlers that reach external services, and the
// dispatcher that routes a model tool call to exactly one handler.
package tools

// Kind identifies one of the tools known to the agent. The set is closed:
// adding a tool means adding a Kind, a Call variant, a definition and a handler.
type Kind int

const (
	KindWeather Kind = iota + 1
	KindGenerateImage
	KindFeed
	KindJoke
)

// Kinds returns every tool kind in catalog order.
func Kinds() []Kind {
	return []Kind{KindGenerateImage, KindFeed, KindJoke, KindWeather}
}

// String returns the wire name the model uses for the tool.
func (k Kind) String() string {
	switch k {
	case KindWeather:
		return "weather"
	case KindGenerateImage:
		return "generate_image"
	case KindFeed:
		return "reddit"
	case KindJoke:
		return "dad_joke"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Call is a decoded, validated tool invocation. Only the variants in this
// package implement it.
type Call interface {
	Kind() Kind
	sealed()
}

// WeatherCall asks for today's temperature at the configured location.
type WeatherCall struct{}

// ImageCall asks for an image generated from Prompt.
type ImageCall struct {
	Prompt string `json:"prompt" jsonschema:"minLength=1" jsonschema_description:"prompt for the image. Be sure to consider the user's original message when making the prompt. If you are unsure, then ask the user to provide more details."`
}

// FeedCall asks for the latest posts of the configured feed.
type FeedCall struct{}

// JokeCall asks for a random dad joke.
type JokeCall struct{}

func (WeatherCall) Kind() Kind { return KindWeather }
func (ImageCall) Kind() Kind   { return KindGenerateImage }
func (FeedCall) Kind() Kind    { return KindFeed }
func (JokeCall) Kind() Kind    { return KindJoke }

func (WeatherCall) sealed() {}
func (ImageCall) sealed()   {}
func (FeedCall) sealed()    {}
func (JokeCall) sealed()    {}
