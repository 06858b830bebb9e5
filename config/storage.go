package config

import "sync"

var (
	storageOnce   sync.Once
	storageConfig *StorageConfig
	minioOnce     sync.Once
	minioConfig   *MinioConfig
	s3Once        sync.Once
	s3Config      *S3Config
)

// StorageConfig 存储后端选择与本地输出目录
type StorageConfig struct {
	Backend   string // local, minio, s3
	OutputDir string // 本地输出目录，生成的译文 PDF 都写在这里
}

// MinioConfig MinIO 对象存储配置
type MinioConfig struct {
	AccessKey  string
	SecretKey  string
	Endpoint   string
	UseSSL     bool
	Region     string
	BucketName string
}

// S3Config AWS S3 配置
type S3Config struct {
	BucketName string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
}

// GetStorageConfig 获取存储配置
func GetStorageConfig() *StorageConfig {
	storageOnce.Do(func() {
		loadEnv()
		storageConfig = &StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			OutputDir: getEnv("PDF2ZH_OUTPUT_DIR", "pdf2zh_files"),
		}
	})
	return storageConfig
}

// GetMinioConfig 获取 MinIO 配置
func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		loadEnv()
		minioConfig = &MinioConfig{
			AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
			Endpoint:   getEnv("MINIO_ENDPOINT", ""),
			UseSSL:     getEnv("MINIO_USE_SSL", "false") == "true",
			Region:     getEnv("MINIO_REGION", ""),
			BucketName: getEnv("MINIO_BUCKET_NAME", "pdf2zh"),
		}
	})
	return minioConfig
}

// GetS3Config 获取 S3 配置
func GetS3Config() *S3Config {
	s3Once.Do(func() {
		loadEnv()
		s3Config = &S3Config{
			BucketName: getEnv("AWS_S3_BUCKET_NAME", ""),
			Region:     getEnv("AWS_REGION", ""),
			Endpoint:   getEnv("AWS_ENDPOINT", ""),
			AccessKey:  getEnv("AWS_ACCESS_KEY", ""),
			SecretKey:  getEnv("AWS_SECRET_KEY", ""),
		}
	})
	return s3Config
}
