package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, title, slug, description, content, meta_tags, status, author_id,
	cover_url, cover_path, image_kind, provenance, published_at, created_at, updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Content, &p.MetaTags, &p.Status, &p.AuthorID,
		&p.CoverURL, &p.CoverPath, &p.ImageKind, &p.Provenance, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost inserts a post. It returns ErrSlugConflict when the slug was
// taken between allocation and insert.
func (db *DB) CreatePost(ctx context.Context, in *PostInput) (*Post, error) {
	status := in.Status
	if status == "" {
		status = "DRAFT"
	}
	tags := in.MetaTags
	if tags == nil {
		tags = []string{}
	}

	post, err := scanPost(db.pool.QueryRow(ctx,
		`INSERT INTO posts (title, slug, description, content, meta_tags, status, author_id,
			cover_url, cover_path, image_kind, provenance, published_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12)
		 RETURNING `+postColumns,
		in.Title, in.Slug, in.Description, in.Content, tags, status, in.AuthorID,
		in.CoverURL, in.CoverPath, in.ImageKind, in.Provenance, in.PublishedAt,
	))
	if err != nil {
		if isSlugConflict(err) {
			return nil, fmt.Errorf("%w: %s", ErrSlugConflict, in.Slug)
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// GetPost retrieves a post by ID. Returns nil, nil if not found.
func (db *DB) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, err := scanPost(db.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// GetPostBySlug retrieves a post by slug. Returns nil, nil if not found.
func (db *DB) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	post, err := scanPost(db.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post by slug: %w", err)
	}
	return post, nil
}

// ListSlugsWithPrefix returns every slug starting with prefix, excluding the
// post identified by excludeID when it is set.
func (db *DB) ListSlugsWithPrefix(ctx context.Context, prefix string, excludeID *uuid.UUID) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT slug FROM posts
		 WHERE slug LIKE $1 ESCAPE '\'
		   AND ($2::uuid IS NULL OR id <> $2)`,
		escapeLike(prefix)+"%", excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}
	slugs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan slugs: %w", err)
	}
	return slugs, nil
}

// UpdatePostSlug sets the slug of a post.
func (db *DB) UpdatePostSlug(ctx context.Context, id uuid.UUID, slug string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE posts SET slug = $2, updated_at = NOW() WHERE id = $1`, id, slug)
	if err != nil {
		if isSlugConflict(err) {
			return fmt.Errorf("%w: %s", ErrSlugConflict, slug)
		}
		return fmt.Errorf("failed to update slug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s not found", id)
	}
	return nil
}

// ListPostsMissingSlug returns posts whose slug is null or empty, oldest first.
func (db *DB) ListPostsMissingSlug(ctx context.Context, limit int) ([]Post, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE slug IS NULL OR slug = ''
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts missing slug: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
