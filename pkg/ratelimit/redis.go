package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a fixed-window counter shared across instances.
// Failures fail open: a broken limiter store must not block invitations.
type RedisLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, perHour int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		max:    int64(perHour),
		window: time.Hour,
	}
}

// Allow increments the window counter for key and checks it against the limit
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	return incr.Val() <= l.max
}
