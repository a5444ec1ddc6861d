package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// QueryCount is one query with its occurrence count.
type QueryCount struct {
	Query string
	Count int
}

// Report is the aggregate view of search activity over a period.
type Report struct {
	Since            time.Time
	TotalSearches    int
	ZeroResultCount  int
	ZeroResultTop    []QueryCount
	TopQueries       []QueryCount
	AvgExecutionMS   float64
	ClickThroughRate float64
}

// Reporter aggregates search_logs and search_clicks into reporting
// metrics. Read-only.
type Reporter struct {
	db DB
}

// NewReporter creates a reporter over an open pool.
func NewReporter(db DB) *Reporter {
	return &Reporter{db: db}
}

// TotalSearches counts searches since the given time.
func (r *Reporter) TotalSearches(ctx context.Context, since time.Time) (int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM search_logs WHERE created_at >= $1`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count searches: %w", err)
	}
	return total, nil
}

// ZeroResultQueries returns the most frequent queries that produced no
// results, plus the total number of zero-result searches.
func (r *Reporter) ZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM search_logs WHERE created_at >= $1 AND result_count = 0`, since).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count zero-result searches: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT query, count(*) AS n
		FROM search_logs
		WHERE created_at >= $1 AND result_count = 0
		GROUP BY query
		ORDER BY n DESC, query ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("load zero-result queries: %w", err)
	}
	defer rows.Close()

	counts, err := scanQueryCounts(rows)
	if err != nil {
		return nil, 0, err
	}
	return counts, total, nil
}

// TopQueries returns the n most frequent queries.
func (r *Reporter) TopQueries(ctx context.Context, since time.Time, n int) ([]QueryCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT query, count(*) AS n
		FROM search_logs
		WHERE created_at >= $1
		GROUP BY query
		ORDER BY n DESC, query ASC
		LIMIT $2`, since, n)
	if err != nil {
		return nil, fmt.Errorf("load top queries: %w", err)
	}
	defer rows.Close()
	return scanQueryCounts(rows)
}

// AvgExecutionMS returns the mean scoring-pass wall time.
func (r *Reporter) AvgExecutionMS(ctx context.Context, since time.Time) (float64, error) {
	var avg float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(avg(execution_time), 0) FROM search_logs WHERE created_at >= $1`, since).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average execution time: %w", err)
	}
	return avg, nil
}

// ClickThroughRate returns clicks divided by searches that returned at
// least one result. Zero when there were no such searches.
func (r *Reporter) ClickThroughRate(ctx context.Context, since time.Time) (float64, error) {
	var searches, clicks int
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM search_logs WHERE created_at >= $1 AND result_count > 0),
			(SELECT count(*) FROM search_clicks WHERE created_at >= $1)`, since).
		Scan(&searches, &clicks)
	if err != nil {
		return 0, fmt.Errorf("click-through rate: %w", err)
	}
	if searches == 0 {
		return 0, nil
	}
	return float64(clicks) / float64(searches), nil
}

// BuildReport assembles the full report for the period.
func (r *Reporter) BuildReport(ctx context.Context, since time.Time, topN int) (Report, error) {
	report := Report{Since: since}

	var err error
	if report.TotalSearches, err = r.TotalSearches(ctx, since); err != nil {
		return Report{}, err
	}
	if report.ZeroResultTop, report.ZeroResultCount, err = r.ZeroResultQueries(ctx, since, topN); err != nil {
		return Report{}, err
	}
	if report.TopQueries, err = r.TopQueries(ctx, since, topN); err != nil {
		return Report{}, err
	}
	if report.AvgExecutionMS, err = r.AvgExecutionMS(ctx, since); err != nil {
		return Report{}, err
	}
	if report.ClickThroughRate, err = r.ClickThroughRate(ctx, since); err != nil {
		return Report{}, err
	}
	return report, nil
}

func scanQueryCounts(rows pgx.Rows) ([]QueryCount, error) {
	counts := make([]QueryCount, 0)
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scan query count: %w", err)
		}
		counts = append(counts, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query counts: %w", err)
	}
	return counts, nil
}
