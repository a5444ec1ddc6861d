package search

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"inkwell/search/internal/index"
)

const mirrorIndex = "inkwell_search"

// mirrorDoc is the flattened record shape pushed to Meilisearch.
type mirrorDoc struct {
	UID         string   `json:"uid"`
	ID          int64    `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Author      string   `json:"author,omitempty"`
	PublishedAt string   `json:"publishedAt,omitempty"`
	ViewCount   int      `json:"viewCount"`
}

// Meili replicates index mutations into a Meilisearch instance so ops
// tooling can inspect the live index. It is never consulted on the read
// path; all result scoring stays in-process.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates the mirror client and configures the index. The
// mirror starts unhealthy if Meilisearch is unreachable and recovers via
// the background health loop.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        mirrorIndex,
		PrimaryKey: "uid",
	}); err != nil {
		log.Printf("search: create mirror index (may already exist): %v", err)
	}

	idx := m.client.Index(mirrorIndex)
	filterable := []interface{}{"type", "category", "author", "tags"}
	if _, err := idx.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update mirror filterable attrs: %v", err)
	}
	searchable := []string{"title", "excerpt", "tags", "category", "author"}
	if _, err := idx.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update mirror searchable attrs: %v", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring mirror index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Push replicates records into the mirror, fire-and-forget.
func (m *Meili) Push(records []index.Record) {
	if len(records) == 0 || !m.healthy.Load() {
		return
	}
	docs := make([]mirrorDoc, len(records))
	for i, rec := range records {
		docs[i] = toMirrorDoc(rec)
	}
	go func() {
		if _, err := m.client.Index(mirrorIndex).AddDocuments(docs, nil); err != nil {
			log.Printf("search: mirror push %d records: %v", len(docs), err)
		}
	}()
}

// Remove deletes one record from the mirror, fire-and-forget.
func (m *Meili) Remove(typ index.Type, id int64) {
	if !m.healthy.Load() {
		return
	}
	uid := mirrorUID(typ, id)
	go func() {
		if _, err := m.client.Index(mirrorIndex).DeleteDocument(uid, nil); err != nil {
			log.Printf("search: mirror remove %s: %v", uid, err)
		}
	}()
}

func mirrorUID(typ index.Type, id int64) string {
	return fmt.Sprintf("%s-%d", typ, id)
}

func toMirrorDoc(rec index.Record) mirrorDoc {
	doc := mirrorDoc{
		UID:       mirrorUID(rec.Type, rec.ID),
		ID:        rec.ID,
		Type:      string(rec.Type),
		Title:     rec.Title,
		Excerpt:   rec.Excerpt,
		Tags:      rec.Tags,
		Category:  rec.Category,
		Author:    rec.Author,
		ViewCount: rec.ViewCount,
	}
	if rec.PublishedAt != nil {
		doc.PublishedAt = rec.PublishedAt.Format(time.RFC3339)
	}
	return doc
}
