package jobs

import (
	"context"
	"fmt"

	"github.com/aatumaykin/morningbrew/internal/logger"
)

// Scheduler couples the guard and the store: a job exists only while its
// run holds the guard.
type Scheduler struct {
	guard  Guard
	store  *Store
	logger *logger.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(guard Guard, store *Store, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{guard: guard, store: store, logger: log}
}

// Store returns the job store.
func (s *Scheduler) Store() *Store {
	return s.store
}

// Start takes the guard and creates a processing job. When the guard is
// taken it returns ErrConcurrencyConflict and creates nothing.
func (s *Scheduler) Start(ctx context.Context, userMessage string) (Job, error) {
	ok, err := s.guard.TryAcquire(ctx)
	if err != nil {
		return Job{}, fmt.Errorf("failed to acquire guard: %w", err)
	}
	if !ok {
		return Job{}, ErrConcurrencyConflict
	}

	job := s.store.Create(userMessage)
	s.logger.InfoCtx(ctx, "job started", logger.Field{Key: "job_id", Value: job.ID})
	return job, nil
}

// Finalize records the terminal status, wakes subscribers and only then
// releases the guard.
func (s *Scheduler) Finalize(ctx context.Context, id string, outcome Outcome) (Job, error) {
	job, err := s.store.finish(id, outcome)
	if err != nil {
		return job, err
	}

	fields := []logger.Field{
		{Key: "job_id", Value: job.ID},
		{Key: "status", Value: string(job.Status)},
		{Key: "duration_ms", Value: job.FinishedAt.Sub(job.CreatedAt).Milliseconds()},
	}
	if job.Status == StatusError {
		s.logger.WarnCtx(ctx, "job failed", append(fields, logger.Field{Key: "error", Value: job.ErrorInfo})...)
	} else {
		s.logger.InfoCtx(ctx, "job finished", fields...)
	}

	if err := s.guard.Release(ctx); err != nil {
		// TTL всё равно освободит слот
		s.logger.ErrorCtx(ctx, "failed to release guard", err, logger.Field{Key: "job_id", Value: job.ID})
	}
	return job, nil
}
