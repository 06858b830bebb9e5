// Package cache caches translation results keyed by the source text,
// the provider and the language pair. Identical paragraphs across runs
// (and across documents) hit the cache instead of the provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Cache 翻译结果缓存。
type Cache interface {
	// Get returns the cached translation for text, if present.
	Get(ctx context.Context, text string) (string, bool, error)
	// Set stores the translation for text.
	Set(ctx context.Context, text, translation string) error
	// Close releases any underlying resources.
	Close() error
}

// hashKey derives the cache key. Service and language pair are part of
// the key so that switching providers never returns stale results.
func hashKey(service, langIn, langOut, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s", service, langIn, langOut, text)))
	return hex.EncodeToString(sum[:])
}
