package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyResponse is returned when the model answers without any choice.
	ErrEmptyResponse = errors.New("model returned no choices")

	// ErrNoImageData is returned when image generation succeeds but carries no image.
	ErrNoImageData = errors.New("image generation failed: no image data received")
)

// ProviderError is a failed call to the model service.
type ProviderError struct {
	Provider   string
	Op         string // chat, image
	StatusCode int    // 0 when the request never got a response
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary is true for throttling, server errors and transport failures.
func (e *ProviderError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}
