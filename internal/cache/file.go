package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileCacheVersion guards against incompatible cache files.
const fileCacheVersion = "1.0"

type fileEntry struct {
	Hash        string    `json:"hash"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

type cacheFile struct {
	Version string      `json:"version"`
	Entries []fileEntry `json:"entries"`
}

// FileCache 单机文件缓存，CLI 在没有 Redis 时使用。
// 所有操作走内存 map，Save 时整体落盘。
type FileCache struct {
	path    string
	service string
	langIn  string
	langOut string

	mu      sync.RWMutex
	entries map[string]fileEntry
}

// NewFileCache loads the cache file at path, starting empty when the
// file does not exist yet.
func NewFileCache(path, service, langIn, langOut string) (*FileCache, error) {
	c := &FileCache{
		path:    path,
		service: service,
		langIn:  langIn,
		langOut: langOut,
		entries: make(map[string]fileEntry),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FileCache) key(text string) string {
	return hashKey(c.service, c.langIn, c.langOut, text)
}

func (c *FileCache) load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		// 损坏的缓存文件直接丢弃，重新开始
		return nil
	}
	for _, entry := range file.Entries {
		c.entries[entry.Hash] = entry
	}
	return nil
}

func (c *FileCache) Get(_ context.Context, text string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[c.key(text)]
	if !ok {
		return "", false, nil
	}
	return entry.Translation, true, nil
}

func (c *FileCache) Set(_ context.Context, text, translation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash := c.key(text)
	c.entries[hash] = fileEntry{
		Hash:        hash,
		Original:    text,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
	return nil
}

// Save writes all entries to disk.
func (c *FileCache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.path == "" {
		return nil
	}

	entries := make([]fileEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	data, err := json.MarshalIndent(cacheFile{Version: fileCacheVersion, Entries: entries}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// Size returns the number of cached entries.
func (c *FileCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close flushes the cache to disk.
func (c *FileCache) Close() error {
	return c.Save()
}
