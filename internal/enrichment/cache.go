// Package enrichment provides the optional context sidecars: news
// summaries, a world-sentiment index, and an assistant summarizer. The
// core pipeline runs unchanged when they are absent; each enricher owns
// its own cache and rate-limit state.
package enrichment

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// fileCache is a write-through cache with one JSON file per key. Misses
// and IO failures are equivalent: the caller just refetches.
type fileCache struct {
	dir string
	ttl time.Duration
	mu  sync.Mutex
}

type cacheEntry struct {
	Value     string    `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

func newFileCache(dir string, ttl time.Duration) *fileCache {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Cache directory unavailable, caching disabled")
		return &fileCache{ttl: ttl}
	}
	return &fileCache{dir: dir, ttl: ttl}
}

func (c *fileCache) path(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

func (c *fileCache) Get(key string) (string, bool) {
	if c.dir == "" {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	if time.Since(entry.FetchedAt) > c.ttl {
		return "", false
	}
	return entry.Value, true
}

func (c *fileCache) Put(key, value string) {
	if c.dir == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cacheEntry{Value: value, FetchedAt: time.Now()})
	if err != nil {
		return
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		log.Debug().Err(err).Msg("Cache write failed")
	}
}

// rateLimiter enforces a minimum interval between external calls.
type rateLimiter struct {
	mu   sync.Mutex
	min  time.Duration
	last time.Time
}

func newRateLimiter(min time.Duration) *rateLimiter {
	return &rateLimiter{min: min}
}

// Allow reports whether a call may go out now and, if so, claims the slot.
func (r *rateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.last) < r.min {
		return false
	}
	r.last = time.Now()
	return true
}
