package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CounterClient is the part of the Redis client RedisLimiter needs.
// *redis.Client satisfies it.
type CounterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter shares counters between replicas: INCR per hit, EXPIRE on
// the first hit of a window. A counter found without a TTL gets the window
// again, so a failed EXPIRE cannot lock a client out for good.
type RedisLimiter struct {
	client CounterClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows limit hits per key per window under prefix.
func NewRedisLimiter(client CounterClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Key returns the Redis key for a client key.
func (l *RedisLimiter) Key(key string) string {
	return fmt.Sprintf("%s:rate_limit:%s", l.prefix, key)
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rkey := l.Key(key)

	count, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}

	now := l.now()
	resetAt := now.Add(l.window)

	if count == 1 {
		if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	} else if ttl, err := l.client.PTTL(ctx, rkey).Result(); err == nil {
		if ttl > 0 {
			resetAt = now.Add(ttl)
		} else if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			// ключ без TTL: EXPIRE первого запроса не прошёл, окно начинается заново
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	d := Decision{Limit: l.limit, ResetAt: resetAt}
	if count > int64(l.limit) {
		return d, nil
	}

	d.Allowed = true
	d.Remaining = l.limit - int(count)
	return d, nil
}
