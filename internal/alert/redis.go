package alert

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "hotboat:alert:"

// RedisDeduper records alert keys with SET NX EX so only one instance
// alerts per window.
type RedisDeduper struct {
	rdb *redis.Client
}

// NewRedisDeduper wraps a Redis client.
func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{rdb: rdb}
}

// FirstInWindow implements Deduper.
func (d *RedisDeduper) FirstInWindow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return d.rdb.SetNX(ctx, dedupKeyPrefix+key, time.Now().Unix(), window).Result()
}
