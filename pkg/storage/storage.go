// Package storage abstracts where uploaded documents and translation
// outputs live: the local output directory, a MinIO bucket or S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// Backend identifiers accepted in STORAGE_BACKEND.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
	BackendS3    = "s3"
)

// Storage 文件存取接口
type Storage interface {
	// Store writes the content under key and returns the key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get opens the content stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the content stored under key.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes everything last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// New builds the backend named by the storage config.
func New(log logger.Logger) (Storage, error) {
	cfg := config.GetStorageConfig()
	switch cfg.Backend {
	case BackendLocal, "":
		return NewLocal(cfg.OutputDir, log)
	case BackendMinio:
		return NewMinio(log)
	case BackendS3:
		return NewS3(log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
