// Package telemetry records executed searches and result click-throughs,
// and aggregates them into reporting metrics.
package telemetry

import (
	"context"
	"sync"
	"time"
)

// Entry is one executed search. Entries are immutable once recorded.
type Entry struct {
	ID           string
	Query        string
	ResultCount  int
	ExecutionMS  float64
	SearchType   string
	FuzzyEnabled bool
	UserID       string // empty for anonymous searches
	CreatedAt    time.Time
}

// Click links a recorded search to a result the user selected.
type Click struct {
	SearchLogID string
	ResultID    int64
	Position    int // 0-based rank in the result list
	CreatedAt   time.Time
}

// Sink persists telemetry. Write failures must never fail the search that
// produced them; the orchestrator logs and continues.
type Sink interface {
	RecordSearch(ctx context.Context, e Entry) (string, error)
	RecordClick(ctx context.Context, c Click) error
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) RecordSearch(context.Context, Entry) (string, error) { return "", nil }
func (Nop) RecordClick(context.Context, Click) error            { return nil }

// Memory keeps telemetry in process, for tests.
type Memory struct {
	mu      sync.Mutex
	Entries []Entry
	Clicks  []Click
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordSearch(_ context.Context, e Entry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
	return e.ID, nil
}

func (m *Memory) RecordClick(_ context.Context, c Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clicks = append(m.Clicks, c)
	return nil
}

// Len reports the number of recorded searches.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

// Last returns the most recently recorded entry.
func (m *Memory) Last() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return Entry{}, false
	}
	return m.Entries[len(m.Entries)-1], true
}
