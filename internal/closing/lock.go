package closing

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// CloseLock serializes submits for one closing date across server
// instances. The unique index is still the final guard.
type CloseLock interface {
	Acquire(ctx context.Context, date string) (release func(), err error)
}

const closeLockTTL = 30 * time.Second

type RedisCloseLock struct {
	locker *redislock.Client
}

func NewRedisCloseLock(rdb redis.UniversalClient) *RedisCloseLock {
	return &RedisCloseLock{locker: redislock.New(rdb)}
}

func (l *RedisCloseLock) Acquire(ctx context.Context, date string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, "closing:"+date, closeLockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// Release with a fresh context; the request may already be done.
		_ = lock.Release(context.Background())
	}, nil
}

// NoopCloseLock is used when no redis is configured.
type NoopCloseLock struct{}

func (NoopCloseLock) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
