// Package cache holds recently extracted content keyed by normalized URL,
// so jobs with overlapping result sets do not refetch the same pages.
package cache

import (
	"sync"
	"time"

	"github.com/keyseek/harvest/models"
)

// entry holds cached content with its creation timestamp.
type entry struct {
	content   *models.ExtractedContent
	createdAt time.Time
}

// Cache is a bounded in-memory TTL cache for extracted content.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a Cache with the given capacity and entry lifetime.
// A background goroutine evicts expired entries every 5 minutes.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves cached content if present and not expired.
func (c *Cache) Get(normalizedURL string) (*models.ExtractedContent, bool) {
	c.mu.RLock()
	e, ok := c.store[normalizedURL]
	c.mu.RUnlock()
	if !ok || time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.content, true
}

// Put stores content under its normalized URL. When the cache is full the
// oldest entry is evicted first.
func (c *Cache) Put(normalizedURL string, content *models.ExtractedContent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		if oldestKey != "" {
			delete(c.store, oldestKey)
		}
	}

	c.store[normalizedURL] = &entry{content: content, createdAt: time.Now()}
}

// Len returns the number of entries currently stored.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the background eviction goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
