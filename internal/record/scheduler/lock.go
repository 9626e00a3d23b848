package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLock keeps multiple instances from archiving the same hour twice.
// Archival itself is idempotent, so the lock is an efficiency measure and a
// failed release is harmless: the key expires on its own.
type RunLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

const lockKey = "recordvault:scheduler:archive-lock"

// RedisLock is a SET NX EX lock keyed per instance, released only by the
// holder.
type RedisLock struct {
	client   *redis.Client
	instance string
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client, instance: uuid.NewString()}
}

func (l *RedisLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKey, l.instance, ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context) error {
	val, err := l.client.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val != l.instance {
		return nil
	}
	return l.client.Del(ctx, lockKey).Err()
}

// NoopLock is used in single-instance deployments and tests.
type NoopLock struct{}

func (NoopLock) TryAcquire(context.Context, time.Duration) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context) error                          { return nil }
