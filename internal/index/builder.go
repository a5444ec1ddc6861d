package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"inkwell/search/internal/cache"
)

// Source loads currently-eligible projections from the content store.
type Source interface {
	LoadPosts(ctx context.Context) ([]Record, error)
	LoadTags(ctx context.Context) ([]Record, error)
	LoadCategories(ctx context.Context) ([]Record, error)
}

// Mirror receives index mutations for replication into an external
// engine. Implementations must be non-blocking.
type Mirror interface {
	Push(records []Record)
	Remove(typ Type, id int64)
}

// Builder maintains the in-memory snapshots and keeps the index cache,
// the result cache, and the optional mirror in sync with them.
//
// Readers get immutable snapshot slices; every mutation builds a fresh
// slice and swaps it in under the lock, so a concurrent search never
// observes a partially-updated index.
type Builder struct {
	source   Source
	cache    *Cache
	mirror   Mirror
	onChange func(ctx context.Context)
	now      func() time.Time

	mu        sync.RWMutex
	snapshots map[Type][]Record
	loaded    map[Type]bool
}

// NewBuilder creates a builder over the given source and index cache.
func NewBuilder(source Source, idxCache *Cache) *Builder {
	return &Builder{
		source:    source,
		cache:     idxCache,
		now:       time.Now,
		snapshots: make(map[Type][]Record),
		loaded:    make(map[Type]bool),
	}
}

// SetMirror attaches an external index mirror. May be nil.
func (b *Builder) SetMirror(m Mirror) {
	b.mirror = m
}

// SetOnChange registers the hook run after every successful mutation.
// The orchestrator uses it to invalidate the result cache.
func (b *Builder) SetOnChange(f func(ctx context.Context)) {
	b.onChange = f
}

// RebuildAll rebuilds every type. The first failure aborts and is
// returned; already-rebuilt types keep their new snapshots.
func (b *Builder) RebuildAll(ctx context.Context) error {
	for _, typ := range Types {
		if err := b.Rebuild(ctx, typ); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild replaces the snapshot for one type from the content store.
// On a load error the previous snapshot stays in place.
func (b *Builder) Rebuild(ctx context.Context, typ Type) error {
	records, err := b.load(ctx, typ)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", typ, err)
	}

	b.mu.Lock()
	b.snapshots[typ] = records
	b.loaded[typ] = true
	// Persisting under the lock keeps cache writes in mutation order.
	b.persist(ctx, typ, records)
	b.mu.Unlock()

	b.changed(ctx)
	if b.mirror != nil {
		b.mirror.Push(records)
	}
	return nil
}

func (b *Builder) load(ctx context.Context, typ Type) ([]Record, error) {
	switch typ {
	case TypePost:
		return b.source.LoadPosts(ctx)
	case TypeTag:
		return b.source.LoadTags(ctx)
	case TypeCategory:
		return b.source.LoadCategories(ctx)
	default:
		return nil, fmt.Errorf("unknown index type %q", typ)
	}
}

// Upsert inserts or replaces one record. An ineligible record (draft,
// scheduled, unpublished) is removed instead, so the persistence layer
// can call Upsert unconditionally on every entity save.
func (b *Builder) Upsert(ctx context.Context, rec Record) {
	if !rec.Eligible(b.now()) {
		b.Remove(ctx, rec.Type, rec.ID)
		return
	}

	b.mu.Lock()
	current := b.snapshotLocked(ctx, rec.Type)
	next := make([]Record, 0, len(current)+1)
	replaced := false
	for _, r := range current {
		if r.ID == rec.ID {
			next = append(next, rec)
			replaced = true
			continue
		}
		next = append(next, r)
	}
	if !replaced {
		next = append(next, rec)
	}
	b.snapshots[rec.Type] = next
	b.loaded[rec.Type] = true
	b.persist(ctx, rec.Type, next)
	b.mu.Unlock()

	b.changed(ctx)
	if b.mirror != nil {
		b.mirror.Push([]Record{rec})
	}
}

// Remove deletes one record if present. Removing an absent record is a
// no-op and triggers no invalidation.
func (b *Builder) Remove(ctx context.Context, typ Type, id int64) {
	b.mu.Lock()
	current := b.snapshotLocked(ctx, typ)
	next := make([]Record, 0, len(current))
	removed := false
	for _, r := range current {
		if r.ID == id {
			removed = true
			continue
		}
		next = append(next, r)
	}
	if removed {
		b.snapshots[typ] = next
		b.loaded[typ] = true
		b.persist(ctx, typ, next)
	}
	b.mu.Unlock()

	if !removed {
		return
	}
	b.changed(ctx)
	if b.mirror != nil {
		b.mirror.Remove(typ, id)
	}
}

// Snapshot returns the current snapshot for one type. A cold process
// falls back to the index cache and then to a lazy rebuild; when both
// fail the search degrades to zero candidates.
func (b *Builder) Snapshot(ctx context.Context, typ Type) []Record {
	b.mu.RLock()
	if b.loaded[typ] {
		records := b.snapshots[typ]
		b.mu.RUnlock()
		return records
	}
	b.mu.RUnlock()

	b.mu.Lock()
	records := b.snapshotLocked(ctx, typ)
	b.mu.Unlock()
	return records
}

// snapshotLocked returns the snapshot for typ, warming it from the index
// cache or the source on first use. Caller holds b.mu.
func (b *Builder) snapshotLocked(ctx context.Context, typ Type) []Record {
	if b.loaded[typ] {
		return b.snapshots[typ]
	}

	if b.cache != nil {
		records, err := b.cache.Load(ctx, typ)
		if err == nil {
			b.snapshots[typ] = records
			b.loaded[typ] = true
			return records
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("index: load %s from cache: %v", typ, err)
		}
	}

	records, err := b.load(ctx, typ)
	if err != nil {
		log.Printf("index: lazy rebuild %s: %v", typ, err)
		return nil
	}
	b.snapshots[typ] = records
	b.loaded[typ] = true
	b.persist(ctx, typ, records)
	return records
}

func (b *Builder) persist(ctx context.Context, typ Type, records []Record) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Save(ctx, typ, records); err != nil {
		log.Printf("index: persist %s: %v", typ, err)
	}
}

func (b *Builder) changed(ctx context.Context) {
	if b.onChange != nil {
		b.onChange(ctx)
	}
}
