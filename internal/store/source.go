package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"inkwell/search/internal/index"
)

// PostgresSource implements index.Source over the content schema.
type PostgresSource struct {
	db DB
}

// NewPostgresSource creates a content source over an open pool.
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

const loadPostsSQL = `
	SELECT p.id, p.title, COALESCE(p.excerpt, ''), p.published_at, p.view_count,
		COALESCE(c.name, ''), COALESCE(u.display_name, ''),
		COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}'),
		COALESCE(array_agg(t.id ORDER BY t.name) FILTER (WHERE t.id IS NOT NULL), '{}')
	FROM posts p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN users u ON u.id = p.author_id
	LEFT JOIN post_tag pt ON pt.post_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
	WHERE p.status = 'published' AND p.published_at <= now() AND p.deleted_at IS NULL
	GROUP BY p.id, p.title, p.excerpt, p.published_at, p.view_count, c.name, u.display_name
	ORDER BY p.id`

// LoadPosts returns projections of every currently-published post.
func (s *PostgresSource) LoadPosts(ctx context.Context) ([]index.Record, error) {
	rows, err := s.db.Query(ctx, loadPostsSQL)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	defer rows.Close()

	records := make([]index.Record, 0)
	for rows.Next() {
		rec := index.Record{Type: index.TypePost, Status: index.StatusPublished}
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Excerpt, &rec.PublishedAt,
			&rec.ViewCount, &rec.Category, &rec.Author, &rec.Tags, &rec.TagIDs); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return records, nil
}

const loadPostSQL = `
	SELECT p.id, p.title, COALESCE(p.excerpt, ''), p.status, p.published_at, p.view_count,
		COALESCE(c.name, ''), COALESCE(u.display_name, ''),
		COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}'),
		COALESCE(array_agg(t.id ORDER BY t.name) FILTER (WHERE t.id IS NOT NULL), '{}')
	FROM posts p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN users u ON u.id = p.author_id
	LEFT JOIN post_tag pt ON pt.post_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
	WHERE p.id = $1 AND p.deleted_at IS NULL
	GROUP BY p.id, p.title, p.excerpt, p.status, p.published_at, p.view_count, c.name, u.display_name`

// LoadPost returns the projection of a single post regardless of status,
// so lifecycle hooks can re-evaluate eligibility after any save. The
// second return is false when the post does not exist or is soft-deleted.
func (s *PostgresSource) LoadPost(ctx context.Context, id int64) (index.Record, bool, error) {
	rec := index.Record{Type: index.TypePost}
	err := s.db.QueryRow(ctx, loadPostSQL, id).Scan(&rec.ID, &rec.Title, &rec.Excerpt,
		&rec.Status, &rec.PublishedAt, &rec.ViewCount, &rec.Category, &rec.Author, &rec.Tags, &rec.TagIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return index.Record{}, false, nil
	}
	if err != nil {
		return index.Record{}, false, fmt.Errorf("load post %d: %w", id, err)
	}
	return rec, true, nil
}

// LoadTags returns projections of every tag.
func (s *PostgresSource) LoadTags(ctx context.Context) ([]index.Record, error) {
	return s.loadNamed(ctx, index.TypeTag, `SELECT id, name FROM tags ORDER BY id`)
}

// LoadCategories returns projections of every category.
func (s *PostgresSource) LoadCategories(ctx context.Context) ([]index.Record, error) {
	return s.loadNamed(ctx, index.TypeCategory, `SELECT id, name FROM categories ORDER BY id`)
}

func (s *PostgresSource) loadNamed(ctx context.Context, typ index.Type, sql string) ([]index.Record, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", typ, err)
	}
	defer rows.Close()

	records := make([]index.Record, 0)
	for rows.Next() {
		rec := index.Record{Type: typ}
		if err := rows.Scan(&rec.ID, &rec.Title); err != nil {
			return nil, fmt.Errorf("scan %s: %w", typ, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", typ, err)
	}
	return records, nil
}
