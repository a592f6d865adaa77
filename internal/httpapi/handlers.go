package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aatumaykin/morningbrew/internal/jobs"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/ratelimit"
	"github.com/aatumaykin/morningbrew/internal/stream"
)

const (
	conflictMessage = "Image generation already in progress. Please try again later."
	startFailed     = "Failed to start image generation."
	jobNotFound     = "Job not found."
)

type startResponse struct {
	JobID       string `json:"jobId"`
	UserMessage string `json:"userMessage"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := clientIP(r)

	started, err := s.starter.Start(ctx, client)
	s.setQuotaHeaders(w, started.Quota)

	switch {
	case err == nil:
		s.json(w, http.StatusOK, startResponse{JobID: started.JobID, UserMessage: started.UserMessage})

	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		retry := started.Quota.RetryAfter(s.config.Now())
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second)/time.Second)))
		s.json(w, http.StatusTooManyRequests, errorResponse{Message: s.config.RateLimitMessage})

	case errors.Is(err, jobs.ErrConcurrencyConflict):
		s.json(w, http.StatusConflict, errorResponse{Message: conflictMessage})

	default:
		s.logger.ErrorCtx(ctx, "failed to start job", err, logger.Field{Key: "client", Value: client})
		s.json(w, http.StatusInternalServerError, errorResponse{Message: startFailed})
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	events, err := s.subscriber.Subscribe(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			s.json(w, http.StatusNotFound, errorResponse{Message: jobNotFound})
			return
		}
		s.logger.ErrorCtx(ctx, "failed to subscribe", err, logger.Field{Key: "job_id", Value: jobID})
		s.json(w, http.StatusInternalServerError, errorResponse{Message: startFailed})
		return
	}

	sse := stream.NewSSE(w, s.config.Heartbeat)
	if err := sse.Stream(ctx, events); err != nil {
		// клиент ушёл раньше, чем job завершился
		s.logger.DebugCtx(ctx, "stream closed early",
			logger.Field{Key: "job_id", Value: jobID},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// setQuotaHeaders writes the RateLimit-* headers when the limiter reported a quota.
func (s *Server) setQuotaHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		reset := d.RetryAfter(s.config.Now())
		h.Set("RateLimit-Reset", strconv.Itoa(int(reset.Round(time.Second)/time.Second)))
	}
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
