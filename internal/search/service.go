package search

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"inkwell/search/internal/index"
	"inkwell/search/internal/match"
	"inkwell/search/internal/telemetry"
)

// Settings holds the orchestrator defaults. Zero values fall back to the
// production defaults.
type Settings struct {
	Match            match.Config
	DefaultThreshold int
	DefaultLimit     int
	MaxResults       int
	MaxQueryLen      int
	SuggestThreshold int
	SuggestLimit     int
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		Match:            match.DefaultConfig(),
		DefaultThreshold: 60,
		DefaultLimit:     20,
		MaxResults:       100,
		MaxQueryLen:      200,
		SuggestThreshold: 70,
		SuggestLimit:     10,
	}
}

// Service executes search requests end to end: candidate retrieval,
// scoring, ranking, result caching, and telemetry.
type Service struct {
	builder  *index.Builder
	results  *ResultCache
	sink     telemetry.Sink
	settings Settings
}

// New creates a search service. sink may be telemetry.Nop{} when
// logging is disabled; the builder's change hook is wired to the result
// cache so index mutations invalidate cached responses.
func New(builder *index.Builder, results *ResultCache, sink telemetry.Sink, settings Settings) *Service {
	defaults := DefaultSettings()
	if settings.DefaultThreshold == 0 {
		settings.DefaultThreshold = defaults.DefaultThreshold
	}
	if settings.DefaultLimit == 0 {
		settings.DefaultLimit = defaults.DefaultLimit
	}
	if settings.MaxResults == 0 {
		settings.MaxResults = defaults.MaxResults
	}
	if settings.MaxQueryLen == 0 {
		settings.MaxQueryLen = defaults.MaxQueryLen
	}
	if settings.SuggestThreshold == 0 {
		settings.SuggestThreshold = defaults.SuggestThreshold
	}
	if settings.SuggestLimit == 0 {
		settings.SuggestLimit = defaults.SuggestLimit
	}
	if settings.Match.OverlapWeight == 0 && settings.Match.EditWeight == 0 {
		settings.Match = defaults.Match
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}

	s := &Service{builder: builder, results: results, sink: sink, settings: settings}
	builder.SetOnChange(results.InvalidateAll)
	return s
}

// Search runs a fuzzy search over published posts.
func (s *Service) Search(ctx context.Context, q Query) Response {
	return s.search(ctx, index.TypePost, q)
}

// SearchTags runs the same engine over tag names.
func (s *Service) SearchTags(ctx context.Context, q Query) Response {
	return s.search(ctx, index.TypeTag, q)
}

// SearchCategories runs the same engine over category names.
func (s *Service) SearchCategories(ctx context.Context, q Query) Response {
	return s.search(ctx, index.TypeCategory, q)
}

func (s *Service) search(ctx context.Context, typ index.Type, q Query) Response {
	threshold := clamp(orDefault(q.Threshold, s.settings.DefaultThreshold), 0, 100)
	limit := clamp(orDefault(q.Limit, s.settings.DefaultLimit), 1, s.settings.MaxResults)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	normalized := match.Normalize(truncateRunes(q.Text, s.settings.MaxQueryLen))

	// An empty query matches nothing, never everything
	if normalized == "" {
		resp := Response{Results: []Result{}, Query: q.Text}
		if q.LogSearch {
			resp.SearchID = s.logSearch(ctx, typ, q, 0, 0)
		}
		return resp
	}

	key := Fingerprint(typ, normalized, q.Filters, threshold, limit, offset)
	if cached, ok := s.results.Get(ctx, key); ok {
		if q.LogSearch {
			cached.SearchID = s.logSearch(ctx, typ, q, len(cached.Results), 0)
		}
		return cached
	}

	start := time.Now()
	candidates := s.builder.Snapshot(ctx, typ)
	scored := make([]Result, 0, len(candidates))
	for _, rec := range candidates {
		if typ == index.TypePost && !q.Filters.matches(rec) {
			continue
		}
		score := match.ScoreRecord(s.settings.Match, normalized, rec.Fields())
		if score < threshold {
			continue
		}
		scored = append(scored, Result{
			ID:          rec.ID,
			Type:        rec.Type,
			Title:       rec.Title,
			Snippet:     snippet(normalized, rec),
			Score:       score,
			Category:    rec.Category,
			Author:      rec.Author,
			PublishedAt: rec.PublishedAt,
			ViewCount:   rec.ViewCount,
		})
	}
	sortResults(scored)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	total := len(scored)
	page := paginate(scored, offset, limit)
	resp := Response{Results: page, Total: total, Query: q.Text}
	s.results.Put(ctx, key, resp)

	if q.LogSearch {
		resp.SearchID = s.logSearch(ctx, typ, q, len(page), elapsed)
	}
	return resp
}

// Suggest returns up to limit post titles matching the prefix, for
// autocomplete. Title-only, high threshold.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) []string {
	normalized := match.Normalize(truncateRunes(prefix, s.settings.MaxQueryLen))
	if normalized == "" {
		return []string{}
	}
	if limit <= 0 || limit > s.settings.SuggestLimit {
		limit = s.settings.SuggestLimit
	}

	type candidate struct {
		title string
		score int
		views int
	}
	var candidates []candidate
	seen := make(map[string]bool)
	for _, rec := range s.builder.Snapshot(ctx, index.TypePost) {
		score := match.Score(s.settings.Match, normalized, rec.Title)
		if score < s.settings.SuggestThreshold || seen[rec.Title] {
			continue
		}
		seen[rec.Title] = true
		candidates = append(candidates, candidate{title: rec.Title, score: score, views: rec.ViewCount})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].views != candidates[j].views {
			return candidates[i].views > candidates[j].views
		}
		return candidates[i].title < candidates[j].title
	})

	titles := make([]string, 0, limit)
	for _, c := range candidates {
		if len(titles) == limit {
			break
		}
		titles = append(titles, c.title)
	}
	return titles
}

// RecordClick stores a click-through on a previously logged search.
func (s *Service) RecordClick(ctx context.Context, searchID string, resultID int64, position int) error {
	return s.sink.RecordClick(ctx, telemetry.Click{
		SearchLogID: searchID,
		ResultID:    resultID,
		Position:    position,
	})
}

// logSearch writes one telemetry entry. Best-effort: a sink failure is
// logged and the search still returns its results.
func (s *Service) logSearch(ctx context.Context, typ index.Type, q Query, resultCount int, elapsedMS float64) string {
	entry := telemetry.Entry{
		ID:           uuid.New().String(),
		Query:        strings.TrimSpace(q.Text),
		ResultCount:  resultCount,
		ExecutionMS:  elapsedMS,
		SearchType:   string(typ),
		FuzzyEnabled: true,
		UserID:       q.UserID,
		CreatedAt:    time.Now(),
	}
	id, err := s.sink.RecordSearch(ctx, entry)
	if err != nil {
		log.Printf("search: record search log: %v", err)
		return ""
	}
	return id
}

// sortResults orders by score, then recency, then popularity, then id,
// so equal inputs always produce the same ranking.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		at, bt := published(a), published(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		return a.ID < b.ID
	})
}

func published(r Result) time.Time {
	if r.PublishedAt == nil {
		return time.Time{}
	}
	return *r.PublishedAt
}

func paginate(results []Result, offset, limit int) []Result {
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	page := make([]Result, end-offset)
	copy(page, results[offset:end])
	return page
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
