package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 64

// TextCache keeps extracted plain text keyed by the hash of the source
// bytes, so re-uploading the same file skips extraction.
type TextCache struct {
	entries *lru.Cache[string, string]
	mu      sync.Mutex
	hits    uint64
	misses  uint64
	evicted uint64
}

// New creates a TextCache holding at most size documents.
func New(size int) *TextCache {
	if size <= 0 {
		size = DefaultSize
	}
	c := &TextCache{}
	// Only fails for a non-positive size.
	c.entries, _ = lru.NewWithEvict[string, string](size, func(string, string) {
		c.evicted++
	})
	return c
}

// Key returns the cache key for data.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetOrExtract returns the cached text for data or calls extract and stores
// its result. Failed extractions are not cached.
func (c *TextCache) GetOrExtract(data []byte, extract func() (string, error)) (string, error) {
	key := Key(data)
	if text, ok := c.entries.Get(key); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return text, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	text, err := extract()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries.Add(key, text)
	c.mu.Unlock()
	return text, nil
}

// Stats reports hit, miss and eviction counts.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Evicted uint64 `json:"evicted"`
	Len     int    `json:"len"`
}

// Stats returns a snapshot of the cache counters.
func (c *TextCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evicted: c.evicted, Len: c.entries.Len()}
}

// Purge drops every entry.
func (c *TextCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
