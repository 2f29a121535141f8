package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter throttles calls per (API key, scope). The gateway passes the matched route name as
// the scope.
type Limiter interface {
	Allow(ctx context.Context, apiKey, scope string) (Decision, error)
}

// RedisLimiter is a sliding-window log shared by every gateway replica.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, now: time.Now}
}

func (rl *RedisLimiter) Allow(ctx context.Context, apiKey, scope string) (Decision, error) {
	key := bucketKey(apiKey, scope)
	now := rl.now()
	windowStart := now.Add(-rl.window)
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixMilli(), 10))
		card = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
		pipe.PExpire(ctx, key, rl.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(card.Val())
	if count >= rl.limit {
		// the rejected call does not consume a slot
		if err := rl.client.ZRem(ctx, key, member).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit rollback: %w", err)
		}
		retry := rl.window
		if z := oldest.Val(); len(z) > 0 {
			expires := time.UnixMilli(int64(z[0].Score)).Add(rl.window)
			retry = expires.Sub(now)
		}
		return Decision{Allowed: false, Limit: rl.limit, Remaining: 0, RetryAfter: retry}, nil
	}

	return Decision{Allowed: true, Limit: rl.limit, Remaining: rl.limit - count - 1}, nil
}

func (rl *RedisLimiter) Close() error {
	return rl.client.Close()
}

// bucketKey never carries the raw API key.
func bucketKey(apiKey, scope string) string {
	return fmt.Sprintf("ratelimit:%016x:%s", xxhash.Sum64String(apiKey), scope)
}
