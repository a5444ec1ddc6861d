package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"inkwell/search/internal/index"
)

func setupMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestLoadPosts(t *testing.T) {
	mock := setupMock(t)
	published := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "title", "excerpt", "published_at", "view_count", "name", "display_name", "tags", "tag_ids",
	}).
		AddRow(int64(1), "Laravel Testing Guide", "How to test Laravel apps.", &published, 42,
			"Technology", "Jane Doe", []string{"laravel", "testing"}, []int64{3, 9}).
		AddRow(int64(2), "Untagged Post", "", &published, 0,
			"", "", []string{}, []int64{})
	mock.ExpectQuery(`SELECT p\.id, p\.title`).WillReturnRows(rows)

	source := NewPostgresSource(mock)
	records, err := source.LoadPosts(context.Background())
	if err != nil {
		t.Fatalf("LoadPosts failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.ID != 1 || first.Type != index.TypePost || first.Title != "Laravel Testing Guide" {
		t.Errorf("unexpected record: %+v", first)
	}
	if first.Status != index.StatusPublished {
		t.Errorf("expected loaded posts marked published, got %q", first.Status)
	}
	if first.Category != "Technology" || first.Author != "Jane Doe" {
		t.Errorf("unexpected denormalized fields: %+v", first)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "laravel" {
		t.Errorf("unexpected tags: %+v", first.Tags)
	}
	if len(first.TagIDs) != 2 || first.TagIDs[0] != 3 {
		t.Errorf("unexpected tag ids: %+v", first.TagIDs)
	}
	if first.ViewCount != 42 {
		t.Errorf("unexpected view count: %d", first.ViewCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoadPostsQueryError(t *testing.T) {
	mock := setupMock(t)
	mock.ExpectQuery(`SELECT p\.id, p\.title`).WillReturnError(errors.New("connection refused"))

	source := NewPostgresSource(mock)
	if _, err := source.LoadPosts(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoadPostFound(t *testing.T) {
	mock := setupMock(t)
	published := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "title", "excerpt", "status", "published_at", "view_count", "name", "display_name", "tags", "tag_ids",
	}).AddRow(int64(7), "Draft vs Published", "", "draft", &published, 3, "Writing", "Sam", []string{}, []int64{})
	mock.ExpectQuery(`WHERE p\.id = \$1`).WithArgs(int64(7)).WillReturnRows(rows)

	source := NewPostgresSource(mock)
	rec, found, err := source.LoadPost(context.Background(), 7)
	if err != nil {
		t.Fatalf("LoadPost failed: %v", err)
	}
	if !found {
		t.Fatal("expected post found")
	}
	if rec.Status != "draft" {
		t.Errorf("expected draft status preserved, got %q", rec.Status)
	}
}

func TestLoadPostNotFound(t *testing.T) {
	mock := setupMock(t)
	rows := pgxmock.NewRows([]string{
		"id", "title", "excerpt", "status", "published_at", "view_count", "name", "display_name", "tags", "tag_ids",
	})
	mock.ExpectQuery(`WHERE p\.id = \$1`).WithArgs(int64(99)).WillReturnRows(rows)

	source := NewPostgresSource(mock)
	_, found, err := source.LoadPost(context.Background(), 99)
	if err != nil {
		t.Fatalf("LoadPost failed: %v", err)
	}
	if found {
		t.Error("expected post not found")
	}
}

func TestLoadTags(t *testing.T) {
	mock := setupMock(t)
	rows := pgxmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "golang").
		AddRow(int64(2), "laravel")
	mock.ExpectQuery(`SELECT id, name FROM tags`).WillReturnRows(rows)

	source := NewPostgresSource(mock)
	records, err := source.LoadTags(context.Background())
	if err != nil {
		t.Fatalf("LoadTags failed: %v", err)
	}
	if len(records) != 2 || records[0].Type != index.TypeTag || records[1].Title != "laravel" {
		t.Errorf("unexpected tag records: %+v", records)
	}
}

func TestLoadCategories(t *testing.T) {
	mock := setupMock(t)
	rows := pgxmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "Technology")
	mock.ExpectQuery(`SELECT id, name FROM categories`).WillReturnRows(rows)

	source := NewPostgresSource(mock)
	records, err := source.LoadCategories(context.Background())
	if err != nil {
		t.Fatalf("LoadCategories failed: %v", err)
	}
	if len(records) != 1 || records[0].Type != index.TypeCategory {
		t.Errorf("unexpected category records: %+v", records)
	}
}
