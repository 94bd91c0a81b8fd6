package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisRetryInterval = 100 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker holds order send locks as SET NX keys with a TTL. A contended
// key is polled until it frees up or the caller's context ends.
type RedisLocker struct {
	client        redis.UniversalClient
	retryInterval time.Duration

	mu   sync.Mutex
	held map[string]string
}

type RedisOption func(*RedisLocker)

// WithRetryInterval sets how often a contended key is retried.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// NewRedisLocker constructs a Redis-based lock manager.
func NewRedisLocker(client redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:        client,
		retryInterval: defaultRedisRetryInterval,
		held:          make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes key for ttl. While another owner holds it, Acquire keeps
// retrying; when ctx ends first the error wraps ErrNotAcquired. Store errors
// are returned immediately.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	if l.isHeld(key) {
		return ErrAlreadyHeld
	}

	token := uuid.NewString()
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
			}
			return fmt.Errorf("redis set %s: %w", key, err)
		}
		if ok {
			l.mu.Lock()
			l.held[key] = token
			l.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release deletes the key only while it still carries this locker's token,
// so an expired lock taken over by someone else is left alone.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.held[key]
	delete(l.held, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}

func (l *RedisLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
