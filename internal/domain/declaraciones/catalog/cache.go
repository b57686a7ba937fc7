// Package catalog holds the in-memory cache for tariff-chapter lookups. The
// chapter listing is read far more often than the catalog changes, so results
// are kept for a short TTL and dropped wholesale whenever the catalog syncs.
package catalog

import (
	"sync"
	"time"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
)

// DefaultTTL is how long a chapter entry stays valid.
const DefaultTTL = 10 * time.Minute

type entry struct {
	partidas  []repository.CodigoDescripcion
	expiresAt time.Time
}

// Cache is a TTL cache of chapter listings keyed by chapter code. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache with the given TTL. A nil now func defaults to
// time.Now; tests inject a fake clock.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached listing for a chapter, or ok=false when the chapter
// is absent or its entry has expired. Expired entries are removed on access.
func (c *Cache) Get(capitulo string) ([]repository.CodigoDescripcion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[capitulo]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, capitulo)
		return nil, false
	}
	return e.partidas, true
}

// Set stores a chapter listing, replacing any prior entry.
func (c *Cache) Set(capitulo string, partidas []repository.CodigoDescripcion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[capitulo] = entry{
		partidas:  partidas,
		expiresAt: c.now().Add(c.ttl),
	}
}

// InvalidateAll drops every cached chapter. Called after each catalog sync so
// readers never see a stale listing once new codes land.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
