// Package cache provides a small JSON-keyed cache abstraction shared by the
// retrieval engine's query cache and the theme graph's derived-graph cache.
//
// Values are JSON-marshalled with a TTL. The caller supplies the literal
// cache key — retrieval hashes its question into one, while the graph
// builder needs predictable keys such as "graph/{user}/{month}-v2.json" —
// and the value is any JSON-marshalable type.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// JSONCache stores arbitrary JSON-marshalable values under literal keys.
type JSONCache interface {
	// Get unmarshals the cached value into out and reports whether the key
	// was present. A cache miss is (false, nil), never an error.
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache is the production JSONCache, backed by the same go-redis
// client the rest of thoughtweave uses for embedding caching.
type RedisCache struct {
	redis *goredis.Client
}

func NewRedisCache(redis *goredis.Client) *RedisCache {
	return &RedisCache{redis: redis}
}

func (c *RedisCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if c.redis == nil {
		return false, nil
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		logger.Warnw("cache: redis get failed", "key", key, "error", err.Error())
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		logger.Warnw("cache: corrupt cache entry, evicting", "key", key, "error", err.Error())
		_ = c.redis.Del(ctx, key).Err()
		return false, nil
	}

	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.redis == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warnw("cache: redis set failed", "key", key, "error", err.Error())
		return err
	}

	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, key).Err()
}
