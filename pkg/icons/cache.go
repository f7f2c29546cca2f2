// Package icons provides the in-memory site icon cache. It is bounded by
// entry count and decoded byte size, and drops its contents when the host
// reports memory pressure.
package icons

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/marmos91/kestrel/pkg/browser"
)

// Metrics receives cache statistics. A nil Metrics disables collection.
type Metrics interface {
	RecordLookup(hit bool)
	RecordEvictions(reason string, count int)
	SetSize(entries int, bytes int64)
}

// Eviction reasons reported to Metrics.
const (
	EvictCapacity  = "capacity"
	EvictTrim      = "trim"
	EvictOversized = "oversized"
)

// Icon is a decoded site icon.
type Icon struct {
	URL    string
	Source string // "manifest", "html", "default"
	Data   []byte
}

// Config bounds the cache.
type Config struct {
	MaxEntries int
	MaxBytes   int64 // 0 disables the byte bound
}

// Cache is an LRU cache of icons keyed by page URL.
type Cache struct {
	mu       sync.Mutex
	lru      *lru.Cache[string, Icon]
	maxBytes int64
	bytes    int64
	evicted  int
	metrics  Metrics
}

// New creates a cache. m may be nil.
func New(cfg Config, m Metrics) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("icon cache: max entries must be positive, got %d", cfg.MaxEntries)
	}

	c := &Cache{maxBytes: cfg.MaxBytes, metrics: m}
	l, err := lru.NewWithEvict(cfg.MaxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("icon cache: %w", err)
	}
	c.lru = l
	return c, nil
}

// onEvict runs synchronously inside lru calls made with c.mu held.
func (c *Cache) onEvict(_ string, icon Icon) {
	c.bytes -= int64(len(icon.Data))
	c.evicted++
}

// Get returns the icon for url.
func (c *Cache) Get(url string) (Icon, bool) {
	c.mu.Lock()
	icon, ok := c.lru.Get(url)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordLookup(ok)
	}
	return icon, ok
}

// Put stores icon under url, evicting least recently used icons while the
// cache exceeds its bounds. An icon larger than MaxBytes is not cached and
// drops any icon previously stored under url.
func (c *Cache) Put(url string, icon Icon) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evicted = 0
	size := int64(len(icon.Data))
	if c.maxBytes > 0 && size > c.maxBytes {
		c.lru.Remove(url)
		c.evicted++
		c.report(EvictOversized)
		return
	}

	if old, ok := c.lru.Peek(url); ok {
		c.bytes -= int64(len(old.Data))
	}
	c.lru.Add(url, icon)
	c.bytes += size

	for c.maxBytes > 0 && c.bytes > c.maxBytes {
		c.lru.RemoveOldest()
	}
	c.report(EvictCapacity)
}

// OnTrimMemory drops every cached icon for any level at or above
// TrimMemoryRunningLow. TrimMemoryRunningModerate keeps the cache.
func (c *Cache) OnTrimMemory(level browser.MemoryLevel) {
	if level < browser.TrimMemoryRunningLow {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evicted = 0
	c.lru.Purge()
	c.bytes = 0

	c.report(EvictTrim)
}

// Len returns the number of cached icons.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Bytes returns the decoded size of all cached icons.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

func (c *Cache) report(reason string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordEvictions(reason, c.evicted)
	c.metrics.SetSize(c.lru.Len(), c.bytes)
}
