package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter provides Redis-backed storage, suitable for sharing threads
// across instances. Keys expire after the configured TTL (0 = no expiry).
type RedisAdapter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAdapter creates a Redis adapter from a connection URL
// (e.g. "redis://localhost:6379/0").
func NewRedisAdapter(redisURL, keyPrefix string, ttl time.Duration) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid redis URL: %w", err)
	}
	return &RedisAdapter{
		client: redis.NewClient(opts),
		prefix: keyPrefix,
		ttl:    ttl,
	}, nil
}

func (r *RedisAdapter) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get retrieves a value by key.
func (r *RedisAdapter) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: redis get: %w", err)
	}
	return json.RawMessage(val), true, nil
}

// Set stores a value by key.
func (r *RedisAdapter) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := r.client.Set(ctx, r.key(key), []byte(value), r.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("store: redis del: %w", err)
	}
	return nil
}

// Has returns true if the key exists.
func (r *RedisAdapter) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("store: redis exists: %w", err)
	}
	return n > 0, nil
}

// Keys returns all keys under the adapter's prefix.
func (r *RedisAdapter) Keys(ctx context.Context) ([]string, error) {
	pattern := r.key("*")
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if r.prefix != "" {
			k = k[len(r.prefix)+1:]
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("store: redis scan: %w", err)
	}
	return keys, nil
}

// Len returns the number of stored keys.
func (r *RedisAdapter) Len(ctx context.Context) (int, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear removes all keys under the adapter's prefix.
func (r *RedisAdapter) Clear(ctx context.Context) error {
	keys, err := r.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := r.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
