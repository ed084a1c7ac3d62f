package engine

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RunLocker serializes advancement of a single run across driver instances.
// Acquire returns false when another holder already owns the run; a false
// return is not an error.
type RunLocker interface {
	Acquire(ctx context.Context, runID string) (bool, error)
	Release(ctx context.Context, runID string)
}

const runLockPrefix = "dripline:run-lock:"

// RedisLocker implements RunLocker with a per-run SET NX key. The TTL bounds
// how long a crashed driver can keep a run unprocessable.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, runID string) (bool, error) {
	acquired, err := l.client.SetNX(ctx, runLockPrefix+runID, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}

	return acquired, nil
}

func (l *RedisLocker) Release(ctx context.Context, runID string) {
	l.client.Del(ctx, runLockPrefix+runID)
}

// NoopLocker is used by single-instance deployments and tests.
type NoopLocker struct{}

func (NoopLocker) Acquire(_ context.Context, _ string) (bool, error) { return true, nil }

func (NoopLocker) Release(_ context.Context, _ string) {}
