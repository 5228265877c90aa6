package sportsdata

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache guarda respuestas ya mapeadas del proveedor.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type redisGetSetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache falla de forma segura: un error de Redis se comporta como un miss.
type RedisCache struct {
	client redisGetSetter
	prefix string
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: "sports:", logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	res, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("sports cache get failed", zap.Error(err), zap.String("key", key))
		return nil, false
	}
	return res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn("sports cache set failed", zap.Error(err), zap.String("key", key))
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool) {
	return nil, false
}

func (noopCache) Set(context.Context, string, []byte, time.Duration) {}
