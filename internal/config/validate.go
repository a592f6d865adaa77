package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate проверяет настройки guard и janitor
func (c *JobsConfig) Validate() error {
	switch c.Guard {
	case GuardLocal, GuardRedis:
	default:
		return fmt.Errorf("invalid jobs.guard: %s (expected: local, redis)", c.Guard)
	}

	if c.LockTTLSeconds < 1 {
		return fmt.Errorf("jobs.lock_ttl_seconds must be >= 1")
	}
	if c.RetentionMinutes < 1 {
		return fmt.Errorf("jobs.retention_minutes must be >= 1")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.SweepSchedule); err != nil {
		return fmt.Errorf("jobs.sweep_schedule is invalid: %w", err)
	}

	return nil
}

// Validate проверяет квоту rate limiter
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid rate_limit.backend: %s (expected: memory, redis)", c.Backend)
	}

	if c.Limit < 1 {
		return fmt.Errorf("rate_limit.limit must be >= 1 (got %d)", c.Limit)
	}
	if c.WindowSeconds < 1 {
		return fmt.Errorf("rate_limit.window_seconds must be >= 1 (got %d)", c.WindowSeconds)
	}

	return nil
}
