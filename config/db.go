package config

import (
	"fmt"
	"sync"
)

var (
	dbOnce   sync.Once
	dbConfig *DBConfig
)

// DBConfig MySQL 任务表配置，仅 poller 使用
type DBConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// DSN returns a gorm/mysql connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// GetDBConfig 获取 MySQL 配置
func GetDBConfig() *DBConfig {
	dbOnce.Do(func() {
		loadEnv()
		dbConfig = &DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			Username: getEnv("DB_USERNAME", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_DATABASE", "pdf2zh"),
		}
	})
	return dbConfig
}
