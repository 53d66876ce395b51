package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache stores JSON-encoded responses under string keys
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisCache is a Cache backed by Redis
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps rdb
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal(val, dest) // Unmarshal JSON into dest
}

// Set stores value in Redis with a TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeletePrefix removes every key starting with prefix
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator() // SCAN instead of KEYS to avoid blocking Redis
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// NopCache never stores anything; used when Redis is not configured
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) DeletePrefix(context.Context, string) error            { return nil }
