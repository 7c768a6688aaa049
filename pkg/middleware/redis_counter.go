package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCounterStore implements CounterStore on a Redis sorted set per key,
// giving all instances one shared sliding window. Each request is a zset
// member scored by its nanosecond timestamp; members older than the window
// are trimmed before counting.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCounterStore creates a shared counter store.
func NewRedisCounterStore(client *redis.Client, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisCounterStore{
		client: client,
		prefix: prefix,
	}
}

// Allow implements CounterStore with an atomic pipeline: trim, count, add,
// refresh expiry.
func (s *RedisCounterStore) Allow(ctx context.Context, key string, limit EndpointLimit) (bool, int, error) {
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)
	now := time.Now().UnixNano()
	cutoff := now - limit.Window.Nanoseconds()

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now),
		Member: strconv.FormatInt(now, 10),
	})
	pipe.Expire(ctx, redisKey, limit.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis rate limit pipeline failed: %w", err)
	}

	count := int(card.Val())
	if count >= limit.Requests {
		// Over budget; drop the member we just added so rejected requests
		// do not extend the penalty.
		s.client.ZRem(ctx, redisKey, strconv.FormatInt(now, 10))
		return false, 0, nil
	}

	return true, limit.Requests - count - 1, nil
}

// Ping verifies connectivity to the shared store.
func (s *RedisCounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
