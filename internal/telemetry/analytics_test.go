package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalSearches(t *testing.T) {
	mock := setupMock(t)
	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`SELECT count\(\*\) FROM search_logs WHERE created_at >= \$1`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(17))

	r := NewReporter(mock)
	total, err := r.TotalSearches(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 17, total)
}

func TestZeroResultQueries(t *testing.T) {
	mock := setupMock(t)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM search_logs WHERE created_at >= \$1 AND result_count = 0`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`GROUP BY query`).
		WithArgs(since, 10).
		WillReturnRows(pgxmock.NewRows([]string{"query", "n"}).
			AddRow("larvel tutrial", 3).
			AddRow("xyzzy", 2))

	r := NewReporter(mock)
	top, total, err := r.ZeroResultQueries(context.Background(), since, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, top, 2)
	assert.Equal(t, QueryCount{Query: "larvel tutrial", Count: 3}, top[0])
}

func TestTopQueries(t *testing.T) {
	mock := setupMock(t)
	since := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectQuery(`GROUP BY query`).
		WithArgs(since, 3).
		WillReturnRows(pgxmock.NewRows([]string{"query", "n"}).
			AddRow("laravel", 12).
			AddRow("testing", 8).
			AddRow("golang", 8))

	r := NewReporter(mock)
	top, err := r.TopQueries(context.Background(), since, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "laravel", top[0].Query)
	assert.Equal(t, 12, top[0].Count)
}

func TestAvgExecutionMS(t *testing.T) {
	mock := setupMock(t)
	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`COALESCE\(avg\(execution_time\), 0\)`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(2.75))

	r := NewReporter(mock)
	avg, err := r.AvgExecutionMS(context.Background(), since)
	require.NoError(t, err)
	assert.InDelta(t, 2.75, avg, 0.0001)
}

func TestClickThroughRate(t *testing.T) {
	mock := setupMock(t)
	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`FROM search_clicks`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"searches", "clicks"}).AddRow(10, 4))

	r := NewReporter(mock)
	rate, err := r.ClickThroughRate(context.Background(), since)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, rate, 0.0001)
}

func TestClickThroughRateNoSearches(t *testing.T) {
	mock := setupMock(t)
	since := time.Now()
	mock.ExpectQuery(`FROM search_clicks`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"searches", "clicks"}).AddRow(0, 0))

	r := NewReporter(mock)
	rate, err := r.ClickThroughRate(context.Background(), since)
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestBuildReport(t *testing.T) {
	mock := setupMock(t)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM search_logs WHERE created_at >= \$1`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(20))
	mock.ExpectQuery(`result_count = 0`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`GROUP BY query`).
		WithArgs(since, 5).
		WillReturnRows(pgxmock.NewRows([]string{"query", "n"}).AddRow("misspeled", 2))
	mock.ExpectQuery(`GROUP BY query`).
		WithArgs(since, 5).
		WillReturnRows(pgxmock.NewRows([]string{"query", "n"}).AddRow("laravel", 9))
	mock.ExpectQuery(`COALESCE\(avg\(execution_time\), 0\)`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(1.2))
	mock.ExpectQuery(`FROM search_clicks`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"searches", "clicks"}).AddRow(18, 9))

	r := NewReporter(mock)
	report, err := r.BuildReport(context.Background(), since, 5)
	require.NoError(t, err)

	assert.Equal(t, 20, report.TotalSearches)
	assert.Equal(t, 2, report.ZeroResultCount)
	assert.Equal(t, "misspeled", report.ZeroResultTop[0].Query)
	assert.Equal(t, "laravel", report.TopQueries[0].Query)
	assert.InDelta(t, 1.2, report.AvgExecutionMS, 0.0001)
	assert.InDelta(t, 0.5, report.ClickThroughRate, 0.0001)
}
