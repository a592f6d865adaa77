package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/morningbrew/internal/logger"
)

// Janitor prunes finished jobs on a cron schedule so the store does not grow
// without bound.
type Janitor struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
	logger    *logger.Logger
}

// NewJanitor validates schedule and returns a stopped janitor.
func NewJanitor(store *Store, schedule string, retention time.Duration, log *logger.Logger) (*Janitor, error) {
	if log == nil {
		log = logger.Discard()
	}

	j := &Janitor{
		store:     store,
		retention: retention,
		cron:      cron.New(),
		logger:    log,
	}
	if _, err := j.cron.AddFunc(schedule, j.Sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.cron.Start()
	j.logger.Info("job janitor started", logger.Field{Key: "retention", Value: j.retention.String()})

	go func() {
		<-ctx.Done()
		<-j.cron.Stop().Done()
		j.logger.Info("job janitor stopped")
	}()
}

// Sweep removes jobs that finished more than retention ago.
func (j *Janitor) Sweep() {
	removed := j.store.Prune(j.store.now().Add(-j.retention))
	if removed > 0 {
		j.logger.Debug("pruned finished jobs", logger.Field{Key: "removed", Value: removed})
	}
}
