// Package search executes fuzzy search requests against the index
// snapshots maintained by the index builder.
package search

import (
	"time"

	"inkwell/search/internal/index"
)

// Filters narrows the candidate set before scoring. Zero-value fields
// are ignored.
type Filters struct {
	Category string
	Author   string
	TagIDs   []int64
	From     *time.Time
	To       *time.Time
}

// Query describes one search request.
type Query struct {
	Text    string
	Filters Filters
	// Threshold is the minimum score to include a candidate, 0-100.
	// Zero means the configured default.
	Threshold int
	// Limit caps the number of returned results. Zero means the
	// configured default.
	Limit  int
	Offset int
	// LogSearch records a telemetry entry for this search.
	LogSearch bool
	// UserID attributes the telemetry entry. Empty for anonymous.
	UserID string
}

// Result is a single ranked hit.
type Result struct {
	ID          int64      `json:"id"`
	Type        index.Type `json:"type"`
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet,omitempty"`
	Score       int        `json:"score"`
	Category    string     `json:"category,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ViewCount   int        `json:"viewCount"`
}

// Response is the envelope returned for one search.
type Response struct {
	Results []Result `json:"results"`
	// Total counts hits above the threshold before limit/offset.
	Total int    `json:"total"`
	Query string `json:"query"`
	// SearchID identifies the telemetry entry when the search was
	// logged, for click-through reporting.
	SearchID string `json:"searchId,omitempty"`
}

func (f Filters) matches(rec index.Record) bool {
	if f.Category != "" && !equalFold(rec.Category, f.Category) {
		return false
	}
	if f.Author != "" && !equalFold(rec.Author, f.Author) {
		return false
	}
	if len(f.TagIDs) > 0 && !hasAnyTag(rec.TagIDs, f.TagIDs) {
		return false
	}
	if f.From != nil {
		if rec.PublishedAt == nil || rec.PublishedAt.Before(*f.From) {
			return false
		}
	}
	if f.To != nil {
		if rec.PublishedAt == nil || rec.PublishedAt.After(*f.To) {
			return false
		}
	}
	return true
}

func hasAnyTag(have, want []int64) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
