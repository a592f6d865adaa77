package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Guard is the single-flight slot. TryAcquire never blocks waiting for the
// slot; it reports whether the caller got it.
type Guard interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalGuard is a process-wide flag.
type LocalGuard struct {
	mu   sync.Mutex
	held bool
}

// NewLocalGuard returns a free guard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

// TryAcquire implements Guard.
func (g *LocalGuard) TryAcquire(context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return false, nil
	}
	g.held = true
	return true, nil
}

// Release implements Guard.
func (g *LocalGuard) Release(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
	return nil
}

// Held reports whether the slot is taken.
func (g *LocalGuard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// LockClient is the part of the Redis client RedisGuard needs.
// *redis.Client satisfies it.
type LockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// удаляем ключ только если он всё ещё наш
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// RedisGuard shares the slot between replicas with a SET NX lock. The TTL
// frees the slot if a replica dies while holding it.
type RedisGuard struct {
	client LockClient
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// NewRedisGuard returns a guard on key.
func NewRedisGuard(client LockClient, key string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 6 * time.Minute
	}
	return &RedisGuard{client: client, key: key, ttl: ttl}
}

// TryAcquire implements Guard.
func (g *RedisGuard) TryAcquire(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" {
		return false, nil
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", g.key, err)
	}
	if !ok {
		return false, nil
	}

	g.token = token
	return true, nil
}

// Release implements Guard. Releasing a lock this guard does not hold is a no-op.
func (g *RedisGuard) Release(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == "" {
		return nil
	}

	token := g.token
	g.token = ""
	if err := g.client.Eval(ctx, unlockScript, []string{g.key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", g.key, err)
	}
	return nil
}
