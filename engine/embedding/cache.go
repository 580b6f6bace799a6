// Package embedding converts text into fixed-dimension vectors through a
// configurable provider, memoizing results by content hash so each distinct
// text costs at most one remote call.
package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// persistEvery is how many insertions pass between durable snapshots.
// Persistence is best-effort: the cache only changes latency, never output.
const persistEvery = 50

// Cache memoizes embedding vectors by content hash. It is an explicit
// component owned by the Client, not a package-level global, and is safe for
// concurrent use.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string][]float32
	path      string
	inserts   int
	logger    *slog.Logger
}

// NewCache creates a cache that snapshots to path. An empty path disables
// persistence entirely.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string][]float32),
		path:    path,
		logger:  logger,
	}
}

// hashKey returns the stable content hash for trimmed input text.
func hashKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Load reads a previously persisted snapshot. A missing file is not an
// error; a corrupt one is logged and the cache starts empty.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("embedding: read cache %s: %w", c.path, err)
	}

	entries := make(map[string][]float32)
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("embedding cache corrupt, starting empty", "path", c.path, "err", err)
		return nil
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	c.logger.Info("embedding cache loaded", "entries", len(entries), "path", c.path)
	return nil
}

// Get returns the cached vector for text, if present.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[hashKey(text)]
	return vec, ok
}

// Put stores a vector and persists the whole cache every persistEvery
// insertions. Persistence failures are logged, never returned.
func (c *Cache) Put(text string, vec []float32) {
	c.mu.Lock()
	c.entries[hashKey(text)] = vec
	c.inserts++
	persist := c.inserts%persistEvery == 0
	c.mu.Unlock()

	if persist {
		c.Flush()
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush writes the cache snapshot to disk. Best-effort; a failure logs a
// warning and the in-memory cache keeps working.
func (c *Cache) Flush() {
	if c.path == "" {
		return
	}

	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		c.logger.Warn("embedding cache encode failed", "err", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.logger.Warn("embedding cache dir create failed", "err", err)
		return
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Warn("embedding cache write failed", "err", err)
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.logger.Warn("embedding cache rename failed", "err", err)
	}
}
