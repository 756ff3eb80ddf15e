package caching

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache keeps raw listing and release pages on disk for ttl so repeated
// searches do not hit the site again. A zero ttl turns the cache off.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates a new Cache instance.
// The cache path will be created if it doesn't exist (only when the cache is enabled).
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	c := &Cache{path: path, ttl: ttl, now: time.Now}
	if !c.Enabled() {
		return c, nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return c, nil
}

// Enabled is false for a nil cache or a zero ttl.
func (c *Cache) Enabled() bool {
	return c != nil && c.ttl > 0 && c.path != ""
}

func (c *Cache) file(url string) string {
	hash := sha256.Sum256([]byte(url))
	return filepath.Join(c.path, fmt.Sprintf("%x.html", hash))
}

// Get returns the cached page for url if it exists and is younger than ttl.
func (c *Cache) Get(url string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	filePath := c.file(url)

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, false
	}
	if c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores a page. It is a no-op when the cache is disabled.
func (c *Cache) Set(url string, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.WriteFile(c.file(url), data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Delete drops a single entry, e.g. after the page turned out to be unusable.
func (c *Cache) Delete(url string) error {
	if !c.Enabled() {
		return nil
	}
	err := os.Remove(c.file(url))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}
