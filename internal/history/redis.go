package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces history markers in Redis.
const KeyPrefix = "ytpush:seen:"

// RedisStore is a durable history backed by Redis. Each seen video ID is a
// key with an empty-ish value; SETNX gives idempotent concurrent inserts.
// An optional TTL ages entries out instead of growing forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // 0 = keep forever
}

// NewRedisStore creates a Redis-backed store. ttl <= 0 disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Has reports whether the video ID key exists.
func (s *RedisStore) Has(ctx context.Context, videoID string) (bool, error) {
	n, err := s.client.Exists(ctx, Key(videoID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check history key: %w", err)
	}
	return n > 0, nil
}

// Add records the video ID via SETNX so concurrent adds cannot conflict.
func (s *RedisStore) Add(ctx context.Context, videoID string) error {
	if err := s.client.SetNX(ctx, Key(videoID), 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set history key: %w", err)
	}
	return nil
}

// Key maps a video ID to its Redis key.
func Key(videoID string) string {
	return KeyPrefix + videoID
}
