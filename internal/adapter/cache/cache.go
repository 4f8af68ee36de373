// Package cache provides a TTL-bounded LRU decorator for reading sources.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

// CachedSource wraps a ReadingSource with an in-memory LRU cache whose
// entries expire after a fixed TTL.
type CachedSource struct {
	inner   pipeline.ReadingSource
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a reading source.
func NewCachedSource(inner pipeline.ReadingSource, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedSource) FetchReadings(ctx context.Context, siteID string, variables []domain.Variable, r domain.TimeRange) ([]domain.EnvironmentalReading, error) {
	key := cacheKey(siteID, variables, r)
	now := c.clock.Now()
	if readings, ok := c.cache.get(key, now); ok {
		c.metrics.ReadingCache.WithLabelValues("hit").Inc()
		return readings, nil
	}
	c.metrics.ReadingCache.WithLabelValues("miss").Inc()

	readings, err := c.inner.FetchReadings(ctx, siteID, variables, r)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a site that starts reporting is picked up.
	if len(readings) > 0 {
		c.cache.put(key, readings, now.Add(c.ttl))
	}
	return readings, nil
}

func cacheKey(siteID string, variables []domain.Variable, r domain.TimeRange) string {
	names := make([]string, len(variables))
	for i, v := range variables {
		names[i] = string(v)
	}
	return fmt.Sprintf("%s|%s|%d|%d", siteID, strings.Join(names, ","), r.From.Unix(), r.To.Unix())
}

// lruCache is a simple thread-safe LRU cache with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []domain.EnvironmentalReading
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]domain.EnvironmentalReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.EnvironmentalReading, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
