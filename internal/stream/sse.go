package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const defaultHeartbeat = 15 * time.Second

// SSE writes events as Server-Sent Events frames.
type SSE struct {
	w         io.Writer
	flush     func()
	heartbeat time.Duration
	mu        sync.Mutex
}

// NewSSE sets the event-stream headers on w.
func NewSSE(w http.ResponseWriter, heartbeat time.Duration) *SSE {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")

	var flushFn func()
	if f, ok := w.(http.Flusher); ok {
		flushFn = f.Flush
	}

	if heartbeat == 0 {
		heartbeat = defaultHeartbeat
	}

	return &SSE{w: w, flush: flushFn, heartbeat: heartbeat}
}

// Stream copies events to the client until the channel closes. While it
// waits it sends a comment line every heartbeat so proxies keep the
// connection open. A negative heartbeat disables it.
func (s *SSE) Stream(ctx context.Context, events <-chan Event) error {
	var ticker *time.Ticker
	if s.heartbeat > 0 {
		ticker = time.NewTicker(s.heartbeat)
		defer ticker.Stop()
	}

	// заголовки уходят клиенту сразу, не дожидаясь события
	if err := s.write([]byte(": connected\n\n")); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Send(evt); err != nil {
				return err
			}
		case <-heartbeatChan(ticker):
			if err := s.write([]byte(fmt.Sprintf(": ping %d\n\n", time.Now().Unix()))); err != nil {
				return err
			}
		}
	}
}

// Send writes one event as a data frame.
func (s *SSE) Send(evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.write([]byte("data: " + string(body) + "\n\n"))
}

func (s *SSE) write(data []byte) error {
	if s == nil || s.w == nil {
		return errors.New("sse writer not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}

func heartbeatChan(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
