// Package httpapi is the HTTP surface: starting jobs and streaming their
// terminal status over Server-Sent Events.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/service"
	"github.com/aatumaykin/morningbrew/internal/stream"
)

// Starter starts jobs. *service.Service implements it.
type Starter interface {
	Start(ctx context.Context, clientKey string) (service.Started, error)
}

// Subscriber yields the terminal event of a job. *stream.Publisher implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, jobID string) (<-chan stream.Event, error)
}

// Config configures the router.
type Config struct {
	CORSOrigin string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP
	TrustProxy bool
	Heartbeat  time.Duration

	RateLimitMessage string

	// MetricsPath is left unrouted when MetricsHandler is nil
	MetricsPath    string
	MetricsHandler http.Handler

	Now func() time.Time
}

// Server holds the handlers and their collaborators.
type Server struct {
	config     Config
	starter    Starter
	subscriber Subscriber
	logger     *logger.Logger
}

// New creates a server.
func New(cfg Config, starter Starter, subscriber Subscriber, log *logger.Logger) *Server {
	if cfg.RateLimitMessage == "" {
		cfg.RateLimitMessage = "Too many requests from this IP, please try again later."
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{config: cfg, starter: starter, subscriber: subscriber, logger: log}
}

// Routes returns the router with every endpoint and middleware mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.config.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger, middleware.Recoverer, s.cors)

	r.Get("/healthz", s.handleHealth)
	if s.config.MetricsHandler != nil {
		r.Handle(s.config.MetricsPath, s.config.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/start", s.handleStart)
		r.Post("/start", s.handleStart)
		r.Get("/stream/{jobId}", s.handleStream)
	})

	return r
}
