package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"inkwell/search/internal/cache"
	"inkwell/search/internal/index"
)

const resultKeyPrefix = "results:"

// ResultCache caches full responses per request fingerprint. Backend
// failures are treated as misses so a broken cache never breaks search.
type ResultCache struct {
	backend cache.Cache
	ttl     time.Duration
	enabled bool
}

// NewResultCache creates a result cache. When enabled is false every
// lookup misses and every write is dropped, so searches always recompute.
func NewResultCache(backend cache.Cache, ttl time.Duration, enabled bool) *ResultCache {
	return &ResultCache{backend: backend, ttl: ttl, enabled: enabled}
}

// Fingerprint derives the deterministic cache key for one request.
// Inputs are the normalized query plus everything that changes the
// result set.
func Fingerprint(typ index.Type, normalized string, f Filters, threshold, limit, offset int) string {
	var b strings.Builder
	b.WriteString(string(typ))
	b.WriteByte('\n')
	b.WriteString(normalized)
	b.WriteByte('\n')
	b.WriteString(f.Category)
	b.WriteByte('\n')
	b.WriteString(f.Author)
	b.WriteByte('\n')
	for _, id := range f.TagIDs {
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	if f.From != nil {
		b.WriteString(strconv.FormatInt(f.From.Unix(), 10))
	}
	b.WriteByte('\n')
	if f.To != nil {
		b.WriteString(strconv.FormatInt(f.To.Unix(), 10))
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%d|%d|%d", threshold, limit, offset)

	sum := sha256.Sum256([]byte(b.String()))
	return resultKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached response for key, if any.
func (c *ResultCache) Get(ctx context.Context, key string) (Response, bool) {
	if !c.enabled {
		return Response{}, false
	}
	payload, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("search: result cache get: %v", err)
		}
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("search: result cache decode: %v", err)
		return Response{}, false
	}
	return resp, true
}

// Put stores the response under key. Write failures are logged only.
func (c *ResultCache) Put(ctx context.Context, key string, resp Response) {
	if !c.enabled {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("search: result cache encode: %v", err)
		return
	}
	if err := c.backend.Set(ctx, key, payload, c.ttl); err != nil {
		log.Printf("search: result cache put: %v", err)
	}
}

// InvalidateAll drops every cached response. Called on any index
// mutation: coarse invalidation trades cache efficiency for correctness.
func (c *ResultCache) InvalidateAll(ctx context.Context) {
	if err := c.backend.DeleteByPrefix(ctx, resultKeyPrefix); err != nil {
		log.Printf("search: result cache invalidate: %v", err)
	}
}
