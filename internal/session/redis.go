package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const mirrorKeyPrefix = "hotboat:session:"

// RedisMirror stores Metadata as JSON under hotboat:session:<contact>.
type RedisMirror struct {
	rdb *redis.Client
}

// NewRedisMirror wraps a Redis client.
func NewRedisMirror(rdb *redis.Client) *RedisMirror {
	return &RedisMirror{rdb: rdb}
}

// Load returns the stored metadata; false when none is stored.
func (m *RedisMirror) Load(ctx context.Context, contact string) (Metadata, bool, error) {
	raw, err := m.rdb.Get(ctx, mirrorKeyPrefix+contact).Bytes()
	if errors.Is(err, redis.Nil) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("get session metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, false, fmt.Errorf("decode session metadata: %w", err)
	}
	return meta, true, nil
}

// Save writes metadata with ttl. Idle metadata deletes the key.
func (m *RedisMirror) Save(ctx context.Context, contact string, meta Metadata, ttl time.Duration) error {
	key := mirrorKeyPrefix + contact
	if meta.Idle() {
		return m.rdb.Del(ctx, key).Err()
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode session metadata: %w", err)
	}
	return m.rdb.Set(ctx, key, raw, ttl).Err()
}
