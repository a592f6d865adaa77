package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSize = 4 << 20

// HTTPConfig is shared by the HTTP-backed collaborators.
type HTTPConfig struct {
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Client           *http.Client // nil = новый клиент с Timeout
}

// httpService is a JSON-over-HTTP collaborator guarded by a circuit breaker.
type httpService struct {
	name    string
	client  *http.Client
	breaker *Breaker
}

func newHTTPService(name string, cfg HTTPConfig) *httpService {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &httpService{
		name:    name,
		client:  client,
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
	}
}

// getJSON performs a GET and decodes the JSON body into out.
func (s *httpService) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	if !s.breaker.Allow() {
		return &ExternalServiceError{Service: s.name, Err: ErrCircuitOpen}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &ExternalServiceError{Service: s.name, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.breaker.RecordFailure()
		return &ExternalServiceError{Service: s.name, Err: err}
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseSize)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 4xx означает, что сервис жив, но запрос отклонён
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			s.breaker.RecordFailure()
		} else {
			s.breaker.RecordSuccess()
		}
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return &ExternalServiceError{
			Service:    s.name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		s.breaker.RecordFailure()
		return &ExternalServiceError{Service: s.name, Err: fmt.Errorf("decode response: %w", err)}
	}

	s.breaker.RecordSuccess()
	return nil
}
