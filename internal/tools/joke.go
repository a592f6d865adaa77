package tools

import (
	"context"
	"fmt"
)

// JokeClient fetches random jokes from an icanhazdadjoke-compatible API.
type JokeClient struct {
	svc *httpService
	url string
}

// JokeConfig configures JokeClient.
type JokeConfig struct {
	URL  string
	HTTP HTTPConfig
}

// NewJokeClient returns a client for cfg.URL.
func NewJokeClient(cfg JokeConfig) *JokeClient {
	if cfg.URL == "" {
		cfg.URL = "https://icanhazdadjoke.com/"
	}
	return &JokeClient{svc: newHTTPService("icanhazdadjoke", cfg.HTTP), url: cfg.URL}
}

// RandomJoke returns the text of one joke.
func (c *JokeClient) RandomJoke(ctx context.Context) (string, error) {
	var resp struct {
		ID   string `json:"id"`
		Joke string `json:"joke"`
	}
	if err := c.svc.getJSON(ctx, c.url, nil, &resp); err != nil {
		return "", err
	}
	if resp.Joke == "" {
		return "", &ExternalServiceError{Service: c.svc.name, Err: fmt.Errorf("response has no joke")}
	}
	return resp.Joke, nil
}
