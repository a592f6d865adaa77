package tools

import (
	"context"
	"time"

	"github.com/aatumaykin/morningbrew/internal/llm"
)

// ImageTool generates images through an llm.ImageGenerator and reports
// failures as ExternalServiceError.
type ImageTool struct {
	gen     llm.ImageGenerator
	breaker *Breaker
}

// NewImageTool wraps gen with a circuit breaker.
func NewImageTool(gen llm.ImageGenerator, threshold int, cooldown time.Duration) *ImageTool {
	return &ImageTool{gen: gen, breaker: NewBreaker(threshold, cooldown)}
}

// GenerateImage returns the URL of a freshly generated image.
func (t *ImageTool) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !t.breaker.Allow() {
		return "", &ExternalServiceError{Service: "image-generation", Err: ErrCircuitOpen}
	}

	url, err := t.gen.GenerateImage(ctx, prompt)
	if err != nil {
		t.breaker.RecordFailure()
		return "", &ExternalServiceError{Service: "image-generation", Err: err}
	}

	t.breaker.RecordSuccess()
	return url, nil
}
