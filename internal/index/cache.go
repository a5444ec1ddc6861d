package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inkwell/search/internal/cache"
)

// Cache persists per-type index snapshots in the cache backend so a warm
// process can serve without touching the content store.
type Cache struct {
	backend cache.Cache
	ttl     time.Duration
}

// NewCache creates an index cache. A zero ttl keeps snapshots until they
// are explicitly replaced.
func NewCache(backend cache.Cache, ttl time.Duration) *Cache {
	return &Cache{backend: backend, ttl: ttl}
}

func cacheKey(typ Type) string {
	return "index:" + string(typ)
}

// Save stores the snapshot for one type, replacing any previous one.
func (c *Cache) Save(ctx context.Context, typ Type, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s index: %w", typ, err)
	}
	if err := c.backend.Set(ctx, cacheKey(typ), payload, c.ttl); err != nil {
		return fmt.Errorf("save %s index: %w", typ, err)
	}
	return nil
}

// Load returns the cached snapshot for one type, or cache.ErrMiss.
func (c *Cache) Load(ctx context.Context, typ Type) ([]Record, error) {
	payload, err := c.backend.Get(ctx, cacheKey(typ))
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("unmarshal %s index: %w", typ, err)
	}
	return records, nil
}

// Invalidate drops the cached snapshot for one type.
func (c *Cache) Invalidate(ctx context.Context, typ Type) error {
	if err := c.backend.Delete(ctx, cacheKey(typ)); err != nil {
		return fmt.Errorf("invalidate %s index: %w", typ, err)
	}
	return nil
}
