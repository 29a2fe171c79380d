// Package caching keeps fetched source bodies on disk for a limited time.
package caching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache is a directory of files named by the SHA256 of their key.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewCache creates the cache directory if needed. A ttl of zero disables
// reads, so every lookup misses and every fill is refreshed.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".body")
}

// Get returns the cached bytes for key if present and younger than the TTL.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	p := c.path(key)

	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores data under key.
func (c *Cache) Set(key string, data []byte) error {
	if err := os.WriteFile(c.path(key), data, 0600); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// GetOrFill returns the cached value, or calls fill and stores its result.
// The bool reports a cache hit. A failed store does not fail the call.
func (c *Cache) GetOrFill(key string, fill func() ([]byte, error)) ([]byte, bool, error) {
	if data, ok := c.Get(key); ok {
		return data, true, nil
	}
	data, err := fill()
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(key, data)
	return data, false, nil
}

// Invalidate removes key from the cache. Missing keys are not an error.
func (c *Cache) Invalidate(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}
