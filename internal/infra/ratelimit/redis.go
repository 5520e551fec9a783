package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agenttrust/internal/domain"

	"github.com/redis/go-redis/v9"
)

// bucketGrace keeps a bucket alive slightly past its window so late
// requests racing the boundary still see the counter.
const bucketGrace = time.Second

// redisLimiter shares a fixed window across directory replicas. Each window
// gets its own key, derived from the clock, so every replica increments the
// same bucket without coordinating: the bucket for a given instant is a pure
// function of (key, window). Expiry is only cleanup; correctness comes from
// the key changing at the window boundary.
type redisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (domain.RateLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisLimiter{client: client, now: now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Second
	}

	bucket, resetAt := windowBucket(key, r.now(), window)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.PExpire(ctx, bucket, window+bucketGrace)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.RateLimitDecision{}, err
	}

	current := incr.Val()
	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   current <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// windowBucket maps an instant onto its fixed window: the redis key for that
// window and the instant the window ends.
func windowBucket(key string, now time.Time, window time.Duration) (string, time.Time) {
	start := now.Truncate(window)
	return fmt.Sprintf("%s:%d", key, start.UnixMilli()), start.Add(window)
}
