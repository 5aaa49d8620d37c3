package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient opens a client from configuration and verifies it with PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Redis stores JSON-encoded values under a key prefix.
type Redis[V any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedis wraps client; every key is stored as prefix+key with the given TTL.
func NewRedis[V any](client redis.Cmdable, prefix string, ttl time.Duration, log *logger.Logger) *Redis[V] {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var out V
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.LogError(err, "redis cache get failed", "key", c.prefix+key)
		}
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.log.LogError(err, "redis cache entry undecodable", "key", c.prefix+key)
		return out, false
	}
	return out, true
}

func (c *Redis[V]) Set(ctx context.Context, key string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.LogError(err, "redis cache encode failed", "key", c.prefix+key)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.log.LogError(err, "redis cache set failed", "key", c.prefix+key)
	}
}

func (c *Redis[V]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.log.LogError(err, "redis cache delete failed", "key", c.prefix+key)
	}
}
