package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by a shared Redis
// counter, so the cap holds across restarts and replicas. The counter
// is advanced with INCR and expired with a window-length TTL set on
// the first hit.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisLimiter allows max requests per identifier within each
// window, counted in Redis.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window}
}

func (l *RedisLimiter) key(identifier string) string {
	return "leads:ratelimit:" + identifier
}

// Check admits the request if the identifier has budget left in the
// current window.
func (l *RedisLimiter) Check(ctx context.Context, identifier string) (Decision, error) {
	key := l.key(identifier)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its TTL (flush or manual edit); re-arm it so the
		// counter cannot live forever.
		ttl = l.window
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: re-expire: %w", err)
		}
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(l.max) {
		// Undo the provisional increment so denied requests do not
		// inflate the counter.
		if err := l.client.Decr(ctx, key).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: decr: %w", err)
		}
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	remaining := l.max - int(count)
	return Decision{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
var _ Limiter = (*MemoryLimiter)(nil)
