package jobs

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	job  Job
	done chan struct{} // закрывается один раз при переходе в терминальный статус
}

// Store keeps jobs in memory. It is the only owner of job state.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	now  func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*entry),
		now:  time.Now,
	}
}

// Create adds a processing job for userMessage.
func (s *Store) Create(userMessage string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{
		job: Job{
			ID:          NewID(),
			Status:      StatusProcessing,
			UserMessage: userMessage,
			CreatedAt:   s.now(),
		},
		done: make(chan struct{}),
	}
	s.jobs[e.job.ID] = e
	return e.job
}

// Get returns a snapshot of the job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

// Done returns a channel closed when the job reaches a terminal status.
func (s *Store) Done(id string) (<-chan struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return e.done, nil
}

// Wait blocks until the job is terminal or ctx ends.
func (s *Store) Wait(ctx context.Context, id string) (Job, error) {
	done, err := s.Done(id)
	if err != nil {
		return Job{}, err
	}

	select {
	case <-done:
		return s.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// finish moves a processing job to its terminal status and wakes waiters.
func (s *Store) finish(id string, outcome Outcome) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	if e.job.Status.Terminal() {
		return e.job, ErrAlreadyFinalized
	}

	now := s.now()
	e.job.FinishedAt = &now
	if outcome.Err != nil {
		e.job.Status = StatusError
		e.job.ErrorInfo = outcome.Err.Error()
	} else {
		e.job.Status = StatusDone
		e.job.ResultURL = outcome.ImageURL
	}
	close(e.done)

	return e.job, nil
}

// Count returns how many jobs have status st.
func (s *Store) Count(st Status) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.jobs {
		if e.job.Status == st {
			n++
		}
	}
	return n
}

// Len returns the number of stored jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Prune drops terminal jobs that finished before cutoff. Processing jobs
// are never dropped.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.jobs {
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
