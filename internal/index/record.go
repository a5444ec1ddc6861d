// Package index maintains the denormalized snapshots of searchable
// content that the matcher scores against.
package index

import (
	"time"

	"inkwell/search/internal/match"
)

// Type identifies the kind of entity behind a record.
type Type string

const (
	TypePost     Type = "posts"
	TypeTag      Type = "tags"
	TypeCategory Type = "categories"
)

// Types lists every indexed type, in rebuild order.
var Types = []Type{TypePost, TypeTag, TypeCategory}

// StatusPublished is the post status that makes a post indexable.
const StatusPublished = "published"

// Record is the denormalized projection of one content entity. Tag and
// category records carry only ID, Type, and Title.
type Record struct {
	ID          int64      `json:"id"`
	Type        Type       `json:"type"`
	Title       string     `json:"title"`
	Status      string     `json:"status,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	TagIDs      []int64    `json:"tagIds,omitempty"`
	Category    string     `json:"category,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ViewCount   int        `json:"viewCount"`
}

// Eligible reports whether the record belongs in the index. Posts must be
// published with a publish date in the past; tags and categories are
// indexable as long as they exist.
func (r Record) Eligible(now time.Time) bool {
	if r.Type != TypePost {
		return true
	}
	return r.Status == StatusPublished && r.PublishedAt != nil && !r.PublishedAt.After(now)
}

// Fields returns the matchable projection of the record.
func (r Record) Fields() match.Fields {
	return match.Fields{
		Title:    r.Title,
		Excerpt:  r.Excerpt,
		Tags:     r.Tags,
		Category: r.Category,
		Author:   r.Author,
	}
}
