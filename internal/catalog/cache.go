package catalog

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gksapp/gks/internal/domain"
)

// DefaultTTL is how long a materialized catalog stays valid
const DefaultTTL = 5 * time.Minute

// RawItem is a catalog record as decoded from a source, before
// it has been assigned a unique ID.
type RawItem struct {
	Number   string
	Title    string
	Subtitle string
	Meter    string
	Text     string
	Stanzas  []domain.Stanza
}

type entry struct {
	items []domain.CatalogItem
	asOf  time.Time
}

// Cache memoizes materialized catalogs per kind with a fixed TTL.
// Absence is never an error; callers derive and Set on a miss.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[domain.Kind]entry
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source used for AsOf stamps and expiry
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCache(opts ...Option) *Cache {
	c := &Cache{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[domain.Kind]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the cached list for kind while it is younger than the TTL
func (c *Cache) Get(kind domain.Kind) ([]domain.CatalogItem, bool) {
	c.mu.RLock()
	e, ok := c.entries[kind]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.asOf) >= c.ttl {
		return nil, false
	}
	return slices.Clone(e.items), true
}

// Set materializes raw records for kind, replacing any previous entry.
// Each item gets UniqueID {kind}_{sourceKey}_{loadOrdinal}, so duplicate
// source keys still produce distinct IDs.
func (c *Cache) Set(kind domain.Kind, raw []RawItem) []domain.CatalogItem {
	items := make([]domain.CatalogItem, len(raw))
	for i, r := range raw {
		items[i] = domain.CatalogItem{
			Kind:     kind,
			Number:   r.Number,
			Title:    r.Title,
			Subtitle: r.Subtitle,
			Meter:    r.Meter,
			Text:     r.Text,
			Stanzas:  slices.Clone(r.Stanzas),
			UniqueID: UniqueID(kind, r.Number, i),
		}
	}

	c.mu.Lock()
	c.entries[kind] = entry{items: items, asOf: c.now()}
	c.mu.Unlock()

	return slices.Clone(items)
}

// Invalidate drops the entry for kind
func (c *Cache) Invalidate(kind domain.Kind) {
	c.mu.Lock()
	delete(c.entries, kind)
	c.mu.Unlock()
}

// InvalidateAll drops every entry
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[domain.Kind]entry)
	c.mu.Unlock()
}

// UniqueID builds the display identity of the ordinal-th record of a load
func UniqueID(kind domain.Kind, sourceKey string, ordinal int) string {
	return fmt.Sprintf("%s_%s_%d", kind, sourceKey, ordinal)
}
