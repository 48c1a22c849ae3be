package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateSocialPost inserts one platform text for a post.
func (db *DB) CreateSocialPost(ctx context.Context, postID uuid.UUID, platform, content string) (*SocialPost, error) {
	var sp SocialPost
	err := db.pool.QueryRow(ctx,
		`INSERT INTO social_posts (post_id, platform, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, post_id, platform, content, created_at`,
		postID, platform, content,
	).Scan(&sp.ID, &sp.PostID, &sp.Platform, &sp.Content, &sp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s social post: %w", platform, err)
	}
	return &sp, nil
}

// ListSocialPosts returns the social posts of a post, newest first.
func (db *DB) ListSocialPosts(ctx context.Context, postID uuid.UUID) ([]SocialPost, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, post_id, platform, content, created_at
		 FROM social_posts WHERE post_id = $1
		 ORDER BY created_at DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social posts: %w", err)
	}
	posts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[SocialPost])
	if err != nil {
		return nil, fmt.Errorf("failed to scan social posts: %w", err)
	}
	return posts, nil
}
