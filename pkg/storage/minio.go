package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// Minio stores documents in a MinIO bucket.
type Minio struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewMinio(log logger.Logger) (*Minio, error) {
	mc := config.GetMinioConfig()
	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure: mc.UseSSL,
		Region: mc.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, mc.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, mc.BucketName, minio.MakeBucketOptions{Region: mc.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Minio{client: client, bucket: mc.BucketName, log: log}, nil
}

func (m *Minio) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	if _, err := m.client.PutObject(ctx, m.bucket, key, reader, -1, minio.PutObjectOptions{}); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	return key, nil
}

func (m *Minio) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return obj, nil
}

func (m *Minio) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (m *Minio) CleanupBefore(ctx context.Context, threshold time.Time) error {
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			m.log.Warn("error listing objects", logger.Error(obj.Err))
			continue
		}
		if obj.LastModified.Before(threshold) {
			if err := m.Delete(ctx, obj.Key); err != nil {
				m.log.Warn("failed to delete expired object",
					logger.String("key", obj.Key), logger.Error(err))
			}
		}
	}
	return nil
}
