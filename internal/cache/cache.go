// Package cache keeps dashboard statistics in Redis between writes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobagg/internal/model"
)

// Cache provides Redis-backed storage for computed stats.
type Cache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// New connects to Redis at the given URL and returns a Cache. namespace
// separates databases sharing one Redis, usually the database path.
// URL format: redis://localhost:6379/0
func New(redisURL, namespace string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &model.ConfigurationError{Field: "cache.redis_url", Err: err}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, key: statsKey(namespace), ttl: ttl}, nil
}

// GetStats returns the cached stats, if any.
func (c *Cache) GetStats(ctx context.Context) (model.Stats, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Stats{}, false, nil
	}
	if err != nil {
		return model.Stats{}, false, fmt.Errorf("cache: get: %w", err)
	}

	var st model.Stats
	if err := json.Unmarshal(data, &st); err != nil {
		return model.Stats{}, false, nil
	}
	return st, true, nil
}

// SetStats stores st with the configured TTL.
func (c *Cache) SetStats(ctx context.Context, st model.Stats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("cache: marshal error: %w", err)
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

// Invalidate drops the cached stats.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func statsKey(namespace string) string {
	hash := sha256.Sum256([]byte(namespace))
	return fmt.Sprintf("jobagg:stats:%x", hash[:8])
}
