// Package service runs the start pipeline: rate limit, concurrency guard,
// job creation and the detached agent run that finalizes the job.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/morningbrew/internal/agent/loop"
	"github.com/aatumaykin/morningbrew/internal/agent/memory"
	"github.com/aatumaykin/morningbrew/internal/jobs"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/metrics"
	"github.com/aatumaykin/morningbrew/internal/prompt"
	"github.com/aatumaykin/morningbrew/internal/ratelimit"
	"github.com/aatumaykin/morningbrew/internal/workers"
)

// TaskType is the worker pool task type of an agent run.
const TaskType = "agent"

const defaultJobTimeout = 5 * time.Minute

// Runner runs the agent loop. *loop.Loop implements it.
type Runner interface {
	Run(ctx context.Context, in loop.Input) (*loop.Result, error)
}

// SeedSource produces the user message that starts a job.
type SeedSource interface {
	Next() string
}

// Config holds the collaborators of a Service.
type Config struct {
	Limiter   ratelimit.Limiter
	Scheduler *jobs.Scheduler
	Pool      *workers.WorkerPool
	Runner    Runner
	Memory    *memory.Manager
	Seeds     SeedSource
	Metrics   *metrics.Metrics
	Logger    *logger.Logger

	// JobTimeout bounds one agent run
	JobTimeout time.Duration
}

// Started is the synchronous answer to a start request.
type Started struct {
	JobID       string
	UserMessage string

	// Quota is the limiter decision, also set when the start is rejected
	Quota ratelimit.Decision
}

// Service accepts start requests and runs accepted jobs in the background.
type Service struct {
	limiter    ratelimit.Limiter
	scheduler  *jobs.Scheduler
	pool       *workers.WorkerPool
	runner     Runner
	memory     *memory.Manager
	seeds      SeedSource
	metrics    *metrics.Metrics
	logger     *logger.Logger
	jobTimeout time.Duration
}

// New validates cfg and registers the agent executor on the pool.
func New(cfg Config) (*Service, error) {
	if cfg.Scheduler == nil {
		return nil, fmt.Errorf("job scheduler cannot be nil")
	}
	if cfg.Pool == nil {
		return nil, fmt.Errorf("worker pool cannot be nil")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("agent runner cannot be nil")
	}
	if cfg.Memory == nil {
		return nil, fmt.Errorf("memory manager cannot be nil")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.Unlimited{}
	}
	if cfg.Seeds == nil {
		cfg.Seeds = prompt.NewRandomGenerator()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	s := &Service{
		limiter:    cfg.Limiter,
		scheduler:  cfg.Scheduler,
		pool:       cfg.Pool,
		runner:     cfg.Runner,
		memory:     cfg.Memory,
		seeds:      cfg.Seeds,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		jobTimeout: cfg.JobTimeout,
	}
	cfg.Pool.RegisterExecutor(TaskType, s.execute)
	return s, nil
}

// Start checks the client's quota, takes the concurrency guard, creates a
// processing job and hands its run to the worker pool. It returns
// ratelimit.ErrRateLimitExceeded or jobs.ErrConcurrencyConflict without
// creating anything.
func (s *Service) Start(ctx context.Context, clientKey string) (Started, error) {
	decision, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		// Недоступный backend лимитера не должен останавливать сервис
		s.logger.WarnCtx(ctx, "rate limiter unavailable, request allowed",
			logger.Field{Key: "client", Value: clientKey},
			logger.Field{Key: "error", Value: err.Error()})
		decision = ratelimit.Decision{Allowed: true}
	}
	if !decision.Allowed {
		s.metrics.RateLimited()
		s.logger.InfoCtx(ctx, "start rejected by rate limiter",
			logger.Field{Key: "client", Value: clientKey})
		return Started{Quota: decision}, ratelimit.ErrRateLimitExceeded
	}

	seed := s.seeds.Next()
	job, err := s.scheduler.Start(ctx, seed)
	if err != nil {
		if errors.Is(err, jobs.ErrConcurrencyConflict) {
			s.metrics.ConcurrencyConflict()
		}
		return Started{Quota: decision}, err
	}
	s.metrics.JobStarted()

	task := workers.Task{
		ID:      job.ID,
		Type:    TaskType,
		Payload: seed,
		// запрос закончится раньше, чем job
		Context: context.WithoutCancel(ctx),
	}
	if err := s.pool.TrySubmit(task); err != nil {
		s.finalize(context.WithoutCancel(ctx), job.ID, jobs.Outcome{Err: err}, 0)
		return Started{Quota: decision}, fmt.Errorf("failed to schedule job: %w", err)
	}

	return Started{
		JobID:       job.ID,
		UserMessage: prompt.FirstSentence(seed),
		Quota:       decision,
	}, nil
}

// execute is the worker pool executor of TaskType.
func (s *Service) execute(ctx context.Context, task workers.Task) (string, error) {
	seed, _ := task.Payload.(string)

	runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	result, runErr := s.run(runCtx, task.ID, seed)

	outcome := jobs.Outcome{Err: runErr}
	rounds := 0
	if runErr == nil {
		outcome.ImageURL = result.ImageURL
		rounds = result.Rounds
	}
	s.finalize(context.WithoutCancel(ctx), task.ID, outcome, rounds)

	return outcome.ImageURL, runErr
}

// run drives the loop and always forgets the job's conversation afterwards.
func (s *Service) run(ctx context.Context, jobID, seed string) (result *loop.Result, err error) {
	conv, err := s.memory.Open(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation memory: %w", err)
	}
	defer s.forget(context.WithoutCancel(ctx), jobID)

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("agent run panicked: %v", r)
		}
	}()

	return s.runner.Run(ctx, loop.Input{JobID: jobID, Seed: seed, Memory: conv})
}

func (s *Service) forget(ctx context.Context, jobID string) {
	if err := s.memory.Remove(ctx, jobID); err != nil {
		s.logger.ErrorCtx(ctx, "failed to clear conversation memory", err,
			logger.Field{Key: "job_id", Value: jobID})
	}
}

func (s *Service) finalize(ctx context.Context, jobID string, outcome jobs.Outcome, rounds int) {
	job, err := s.scheduler.Finalize(ctx, jobID, outcome)
	if err != nil {
		s.logger.ErrorCtx(ctx, "failed to finalize job", err,
			logger.Field{Key: "job_id", Value: jobID})
		return
	}

	var d time.Duration
	if job.FinishedAt != nil {
		d = job.FinishedAt.Sub(job.CreatedAt)
	}
	s.metrics.JobFinished(string(job.Status), d)
	if rounds > 0 {
		s.metrics.AgentRounds(rounds)
	}
}
