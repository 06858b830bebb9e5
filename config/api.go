package config

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var (
	loadEnvOnce sync.Once
	apiOnce     sync.Once
	apiConfig   *APIConfig
)

// APIConfig HTTP 服务配置
type APIConfig struct {
	Host    string
	Port    int
	BaseURL string
}

// loadEnv 加载项目根目录下的 .env 文件，只执行一次。
// 找不到时回退到进程环境变量。
func loadEnv() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}
	})
}

// getEnv returns the environment value or a default when unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the environment value parsed as int or a default.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid value for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// GetAPIConfig 获取 HTTP 服务配置
func GetAPIConfig() *APIConfig {
	apiOnce.Do(func() {
		loadEnv()
		apiConfig = &APIConfig{
			Host:    getEnv("API_HOST", "0.0.0.0"),
			Port:    getEnvInt("API_PORT", 8080),
			BaseURL: getEnv("BASE_URL", ""),
		}
	})
	return apiConfig
}
