package cachemem

import (
	"context"
	"sync"
	"time"

	"agenttrust/internal/domain"
	"agenttrust/internal/usecase"
)

// Cache is a TTL'd in-memory report cache keyed by document identity
// (canonical payload hash plus source URL).
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	report    domain.ValidationReport
	expiresAt time.Time
	hasExpiry bool
}

func New() *Cache {
	return &Cache{
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.ValidationReport, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.hasExpiry && c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	report := entry.report
	return &report, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, report domain.ValidationReport, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{report: report}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

var _ usecase.ReportCache = (*Cache)(nil)
