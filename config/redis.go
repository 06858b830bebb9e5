package config

import (
	"fmt"
	"sync"
)

var (
	redisOnce   sync.Once
	redisConfig *RedisConfig
)

// RedisConfig Redis 连接配置，队列和翻译缓存共用
type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// Addr returns the host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetRedisConfig 获取 Redis 配置
func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		loadEnv()
		redisConfig = &RedisConfig{
			Host:     getEnv("REDIS_CONFIG_HOST", "localhost"),
			Port:     getEnvInt("REDIS_CONFIG_PORT", 6379),
			DB:       getEnvInt("REDIS_CONFIG_DB", 0),
			Password: getEnv("REDIS_CONFIG_PASSWORD", ""),
		}
	})
	return redisConfig
}
