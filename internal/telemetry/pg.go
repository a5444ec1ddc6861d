package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used here, so tests can substitute
// pgxmock.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PG persists telemetry into the search_logs and search_clicks tables.
type PG struct {
	db DB
}

// NewPG creates a Postgres-backed sink.
func NewPG(db DB) *PG {
	return &PG{db: db}
}

// RecordSearch inserts one search log entry and returns its id.
func (p *PG) RecordSearch(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var userID *string
	if e.UserID != "" {
		userID = &e.UserID
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO search_logs (id, query, result_count, execution_time, search_type, fuzzy_enabled, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Query, e.ResultCount, e.ExecutionMS, e.SearchType, e.FuzzyEnabled, userID, e.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert search log: %w", err)
	}
	return e.ID, nil
}

// RecordClick inserts one click-through entry.
func (p *PG) RecordClick(ctx context.Context, c Click) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO search_clicks (search_log_id, result_id, position, created_at)
		VALUES ($1, $2, $3, $4)`,
		c.SearchLogID, c.ResultID, c.Position, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search click: %w", err)
	}
	return nil
}
