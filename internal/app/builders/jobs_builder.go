package builders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/jobs"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/ratelimit"
)

const redisPingTimeout = 5 * time.Second

type JobsBuilder struct {
	config *config.Config
	logger *logger.Logger
	redis  *redis.Client
}

func NewJobsBuilder(cfg *config.Config, log *logger.Logger, rdb *redis.Client) *JobsBuilder {
	return &JobsBuilder{
		config: cfg,
		logger: log,
		redis:  rdb,
	}
}

// BuildRedis connects to Redis when the guard or the limiter needs it and
// returns nil otherwise.
func BuildRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	log.Info("redis connected", logger.Field{Key: "addr", Value: cfg.Redis.Addr})
	return client, nil
}

func (b *JobsBuilder) BuildGuard() (jobs.Guard, error) {
	switch b.config.Jobs.Guard {
	case config.GuardLocal:
		return jobs.NewLocalGuard(), nil
	case config.GuardRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("redis guard requires a redis connection")
		}
		key := b.config.Redis.KeyPrefix + ":generation_lock"
		ttl := time.Duration(b.config.Jobs.LockTTLSeconds) * time.Second
		return jobs.NewRedisGuard(b.redis, key, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported concurrency guard: %s", b.config.Jobs.Guard)
	}
}

func (b *JobsBuilder) BuildLimiter() (ratelimit.Limiter, error) {
	rl := b.config.RateLimit
	if !rl.Enabled {
		b.logger.Warn("rate limiting disabled")
		return ratelimit.Unlimited{}, nil
	}

	window := time.Duration(rl.WindowSeconds) * time.Second
	switch rl.Backend {
	case config.BackendMemory:
		return ratelimit.NewMemoryLimiter(rl.Limit, window), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("redis rate limiter requires a redis connection")
		}
		return ratelimit.NewRedisLimiter(b.redis, b.config.Redis.KeyPrefix, rl.Limit, window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", rl.Backend)
	}
}

func (b *JobsBuilder) BuildJanitor(store *jobs.Store) (*jobs.Janitor, error) {
	retention := time.Duration(b.config.Jobs.RetentionMinutes) * time.Minute
	return jobs.NewJanitor(store, b.config.Jobs.SweepSchedule, retention, b.logger)
}
