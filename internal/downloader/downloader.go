// Package downloader resolves the translate command's input: a local
// file path is used as is, an http(s) URL is fetched into the work dir.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

const (
	downloadTimeout = 300 * time.Second
	maxRetries      = 3
	baseRetryDelay  = 2 * time.Second
)

// Downloader fetches remote PDFs with retries.
type Downloader struct {
	client  *http.Client
	workDir string
	log     logger.Logger
}

func New(workDir string, log logger.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: downloadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		workDir: workDir,
		log:     log,
	}
}

// IsURL reports whether input should be fetched rather than opened.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// Resolve returns a local path for input, downloading it if needed.
func (d *Downloader) Resolve(ctx context.Context, input string) (string, error) {
	if !IsURL(input) {
		if _, err := os.Stat(input); err != nil {
			return "", fmt.Errorf("input file not accessible: %w", err)
		}
		return input, nil
	}
	return d.download(ctx, input)
}

func (d *Downloader) download(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	name := filepath.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = "document.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}

	if err := os.MkdirAll(d.workDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	dest := filepath.Join(d.workDir, name)

	d.log.Info("downloading document",
		logger.String("url", rawURL),
		logger.String("dest", dest))

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(baseRetryDelay * time.Duration(attempt-1)):
			}
		}

		if err := d.fetchOnce(ctx, rawURL, dest); err != nil {
			lastErr = err
			d.log.Warn("download attempt failed",
				logger.Int("attempt", attempt),
				logger.Error(err))
			continue
		}
		return dest, nil
	}
	return "", fmt.Errorf("download failed after %d attempts: %w", maxRetries, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write download: %w", err)
	}
	return nil
}
