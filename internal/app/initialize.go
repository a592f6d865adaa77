package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aatumaykin/morningbrew/internal/app/builders"
	"github.com/aatumaykin/morningbrew/internal/httpapi"
	"github.com/aatumaykin/morningbrew/internal/jobs"
	"github.com/aatumaykin/morningbrew/internal/metrics"
	"github.com/aatumaykin/morningbrew/internal/service"
	"github.com/aatumaykin/morningbrew/internal/stream"
	"github.com/aatumaykin/morningbrew/internal/workers"
)

// Initialize creates every component and starts the background ones: the
// worker pool and the job janitor. The HTTP listener is started by Run.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("application already initialized")
	}

	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)

	// 2. Metrics
	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if a.config.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(a.config.Metrics.Namespace, reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// 3. Model service
	model := a.model
	if model == nil {
		var err error
		model, err = builders.NewLLMBuilder(a.config, a.logger).Build()
		if err != nil {
			return a.abort(err)
		}
	}

	// 4. Tools
	dispatcher, err := builders.NewToolsBuilder(a.config, a.logger, model, m).Build()
	if err != nil {
		return a.abort(err)
	}

	// 5. Agent loop and conversation memory
	agentBuilder := builders.NewAgentBuilder(a.config, a.logger, model)
	agentLoop, err := agentBuilder.BuildLoop(dispatcher)
	if err != nil {
		return a.abort(err)
	}
	memories, err := agentBuilder.BuildMemory()
	if err != nil {
		return a.abort(err)
	}

	// 6. Guard, limiter and janitor
	a.redis, err = builders.BuildRedis(a.ctx, a.config, a.logger)
	if err != nil {
		return a.abort(err)
	}
	jobsBuilder := builders.NewJobsBuilder(a.config, a.logger, a.redis)
	guard, err := jobsBuilder.BuildGuard()
	if err != nil {
		return a.abort(err)
	}
	limiter, err := jobsBuilder.BuildLimiter()
	if err != nil {
		return a.abort(err)
	}

	a.store = jobs.NewStore()
	scheduler := jobs.NewScheduler(guard, a.store, a.logger)

	a.janitor, err = jobsBuilder.BuildJanitor(a.store)
	if err != nil {
		return a.abort(err)
	}

	// 7. Worker pool and job service
	a.workerPool = workers.NewPool(a.config.Workers.PoolSize, a.config.Workers.QueueSize, a.logger)
	a.service, err = service.New(service.Config{
		Limiter:    limiter,
		Scheduler:  scheduler,
		Pool:       a.workerPool,
		Runner:     agentLoop,
		Memory:     memories,
		Metrics:    m,
		Logger:     a.logger,
		JobTimeout: time.Duration(a.config.Agent.JobTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return a.abort(fmt.Errorf("failed to create job service: %w", err))
	}

	// 8. HTTP surface
	api := httpapi.New(httpapi.Config{
		CORSOrigin:       a.config.Server.CORSOrigin,
		TrustProxy:       a.config.Server.TrustProxy,
		Heartbeat:        time.Duration(a.config.Server.HeartbeatSeconds) * time.Second,
		RateLimitMessage: a.config.RateLimit.Message,
		MetricsPath:      a.config.Metrics.Path,
		MetricsHandler:   metricsHandler,
	}, a.service, stream.NewPublisher(a.store), a.logger)
	a.handler = api.Routes()

	// WriteTimeout не задаём: SSE соединение живёт до конца job
	a.server = &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: time.Duration(a.config.Server.ReadHeaderTimeoutSeconds) * time.Second,
		ErrorLog:          slog.NewLogLogger(a.logger.StdLogger().Handler(), slog.LevelError),
	}

	// 9. Start background components
	a.workerPool.Start()
	a.janitor.Start(a.ctx)

	a.started = true
	return nil
}

// abort releases what Initialize managed to create before failing.
func (a *App) abort(err error) error {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	a.cancel()
	return err
}
