package kb

import (
	"context"
	"sync"
	"time"

	"github.com/safakhou/helpbot/internal/helpers"
)

// ContentCache stores fetched article content keyed by canonical URL.
// Single-key Get and Put must be atomic: concurrent searches share one
// cache instance without any coordination beyond this interface, which is
// safe because entries are idempotent (the same URL always yields the same
// content).
type ContentCache interface {
	Get(ctx context.Context, url string) (ArticleContent, bool, error)
	Put(ctx context.Context, url string, content ArticleContent) error
}

type memoryEntry struct {
	content  ArticleContent
	storedAt time.Time
}

// MemoryCache is a mutex-guarded in-process ContentCache. TTL 0 keeps
// entries forever; maxEntries 0 lets the map grow for the life of the
// process. Both defaults match the tool's bounded-crawl usage; a long-lived
// deployment should set at least one of them.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	order      []string // insertion order, oldest first
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, url string) (ArticleContent, bool, error) {
	key := cacheKey(url)
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return ArticleContent{}, false, nil
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		c.remove(key)
		return ArticleContent{}, false, nil
	}
	return entry.content, true, nil
}

func (c *MemoryCache) Put(_ context.Context, url string, content ArticleContent) error {
	key := cacheKey(url)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = memoryEntry{content: content, storedAt: c.now()}
		return nil
	}
	if c.maxEntries > 0 {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			c.remove(c.order[0])
		}
	}
	c.entries[key] = memoryEntry{content: content, storedAt: c.now()}
	c.order = append(c.order, key)
	return nil
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove expects c.mu held.
func (c *MemoryCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func cacheKey(raw string) string {
	if canonical, err := helpers.CanonicalURL(raw); err == nil {
		return canonical
	}
	return raw
}
