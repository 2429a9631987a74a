package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/logger"
)

// Cache is a disk-backed store for downloaded binary assets, keyed by URL.
// Each entry carries the asset version it was written under; a version
// mismatch on read invalidates the entry. Writes are best-effort: a failed
// write is logged and never fails the fetch that triggered it.
type Cache struct {
	dir string
	mu  sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a cache rooted at dir, creating it if needed. A nil
// cache is a valid always-miss cache.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// entryPath returns the content and version file paths for a URL.
func (c *Cache) entryPath(url string) (dataPath, versionPath string) {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:16])
	return filepath.Join(c.dir, name+".bin"), filepath.Join(c.dir, name+".ver")
}

// Get returns the cached bytes for url if present under the same version.
// Takes the write lock: the hit/miss counters mutate on every lookup and
// Get is called from load goroutines.
func (c *Cache) Get(url, version string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dataPath, versionPath := c.entryPath(url)

	storedVersion, err := os.ReadFile(versionPath)
	if err != nil || string(storedVersion) != version {
		c.misses++
		return nil, false
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		c.misses++
		return nil, false
	}
	c.hits++
	return data, true
}

// Put stores bytes for url under version. Best-effort: errors are logged
// and swallowed so a full disk never breaks loading.
func (c *Cache) Put(url, version string, data []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dataPath, versionPath := c.entryPath(url)

	// Write data before version so a crash between the two reads as a miss.
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		logger.Warn("cache write failed", zap.String("url", url), zap.Error(err))
		return
	}
	if err := os.WriteFile(versionPath, []byte(version), 0o644); err != nil {
		logger.Warn("cache version write failed", zap.String("url", url), zap.Error(err))
		_ = os.Remove(dataPath)
	}
}

// Stats returns cache hit/miss counters.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Clear removes every cache entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	c.hits = 0
	c.misses = 0
	return nil
}
