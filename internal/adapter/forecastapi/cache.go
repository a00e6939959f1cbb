package forecastapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/session"
)

// ReportFetcher downloads report files.
type ReportFetcher interface {
	Report(ctx context.Context, kind ReportKind, municipality, barangay string) (Report, error)
}

// CachedReports wraps a ReportFetcher with an in-memory LRU cache whose
// entries expire after a fixed TTL. Reports are regenerated by the backend on
// every call, so repeated anonymous downloads of the same file are served
// locally. Requests carrying a session token always reach the backend, which
// is the only place the token is verified.
type CachedReports struct {
	inner   ReportFetcher
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedReports creates a cache decorator around a report fetcher.
func NewCachedReports(inner ReportFetcher, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedReports {
	return &CachedReports{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   domain.Clock(),
		metrics: metrics,
	}
}

func (c *CachedReports) Report(ctx context.Context, kind ReportKind, municipality, barangay string) (Report, error) {
	if _, ok := session.Token(ctx); ok {
		c.metrics.ReportCache.WithLabelValues(string(kind), "bypass").Inc()
		return c.inner.Report(ctx, kind, municipality, barangay)
	}

	key := fmt.Sprintf("%s:%s|%s", kind, domain.NormalizeName(municipality), domain.NormalizeName(barangay))
	now := c.clock.Now()
	if r, ok := c.cache.get(key, now); ok {
		c.metrics.ReportCache.WithLabelValues(string(kind), "hit").Inc()
		return r, nil
	}
	c.metrics.ReportCache.WithLabelValues(string(kind), "miss").Inc()

	r, err := c.inner.Report(ctx, kind, municipality, barangay)
	if err != nil {
		return r, err
	}
	// Empty bodies are not cached so a later download can retry.
	if len(r.Body) > 0 {
		c.cache.put(key, r, now.Add(c.ttl))
	}
	return r, nil
}

// lruCache is a thread-safe LRU cache of reports with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     Report
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

func (c *lruCache) get(key string, now time.Time) (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Report{}, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return Report{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value Report, expiresAt time.Time) {
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

func (c *lruCache) len() int {
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
	e.prev, e.next = nil, nil
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
