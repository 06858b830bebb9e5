package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

// Local stores files under a directory on disk. Keys map to relative
// paths; path escapes are rejected.
type Local struct {
	root string
	log  logger.Logger
}

func NewLocal(root string, log logger.Logger) (*Local, error) {
	if root == "" {
		root = "pdf2zh_files"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Local{root: root, log: log}, nil
}

// Root returns the backing directory.
func (l *Local) Root() string { return l.root }

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *Local) Store(_ context.Context, reader io.Reader, key string) (string, error) {
	path, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create key dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return key, nil
}

func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *Local) CleanupBefore(_ context.Context, threshold time.Time) error {
	return filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(path); err != nil {
				l.log.Warn("failed to remove expired file",
					logger.String("path", path), logger.Error(err))
				return nil
			}
			l.log.Info("removed expired file", logger.String("path", path))
		}
		return nil
	})
}
