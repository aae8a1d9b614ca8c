package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/progress"
)

const keyPrefix = "lumina:attempts:"

// RedisLimiter shares the counters between API instances.
type RedisLimiter struct {
	rdb    goredis.UniversalClient
	max    int
	window time.Duration
}

var _ progress.AttemptLimiter = (*RedisLimiter)(nil)

// NewRedisClient connects to the configured Redis server.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Address,
		Password:    conf.Password,
		DB:          conf.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s", conf.Address)
	}
	return rdb, nil
}

func NewRedisLimiter(rdb goredis.UniversalClient, conf core.UnlockConfig) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: conf.MaxAttempts, window: conf.Window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Get(ctx, keyPrefix+key).Int()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return true, nil
		}
		return false, errors.Wrap(err, "reading attempts")
	}
	return n < l.max, nil
}

// Fail records a failure. The window starts with the first failure.
func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	k := keyPrefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return errors.Wrap(err, "recording attempt")
	}
	if n == 1 {
		if err = l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return errors.Wrap(err, "setting attempts window")
		}
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.rdb.Del(ctx, keyPrefix+key).Err(), "resetting attempts")
}
