package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdf2zh/pdf2zh/config"
)

const (
	cacheKeyPrefix = "translate_cache:"
	cacheTTL       = 7 * 24 * time.Hour
)

// RedisCache 基于 Redis 的共享翻译缓存，server/worker 共用。
type RedisCache struct {
	client  *redis.Client
	service string
	langIn  string
	langOut string
}

// NewRedisCache connects to Redis using the shared config.
func NewRedisCache(service, langIn, langOut string) (*RedisCache, error) {
	cfg := config.GetRedisConfig()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client:  client,
		service: service,
		langIn:  langIn,
		langOut: langOut,
	}, nil
}

func (c *RedisCache) key(text string) string {
	return cacheKeyPrefix + hashKey(c.service, c.langIn, c.langOut, text)
}

func (c *RedisCache) Get(ctx context.Context, text string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(text)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get translation from redis: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, text, translation string) error {
	if err := c.client.Set(ctx, c.key(text), translation, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set translation in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
