// Package social derives per-platform short-form posts from an article's
// social variants and stores them.
package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/types"
)

// Post is one platform text ready to be stored.
type Post struct {
	Platform string
	Content  string
}

// Permalink joins the public blog URL and a slug. It returns "" without a slug.
func Permalink(blogURL, slug string) string {
	if slug == "" {
		return ""
	}
	return strings.TrimSuffix(blogURL, "/") + "/" + slug
}

// Build derives the platform posts. LinkedIn gets the permalink appended;
// Instagram text is used as is. Empty variants produce no post.
func Build(variants types.SocialVariants, permalink string) []Post {
	var posts []Post
	if variants.LinkedIn != "" {
		posts = append(posts, Post{
			Platform: db.PlatformLinkedIn,
			Content:  strings.TrimSpace(variants.LinkedIn + "\n\n" + permalink),
		})
	}
	if variants.Instagram != "" {
		posts = append(posts, Post{Platform: db.PlatformInstagram, Content: variants.Instagram})
	}
	return posts
}

// Store persists social posts.
type Store interface {
	CreateSocialPost(ctx context.Context, postID uuid.UUID, platform, content string) (*db.SocialPost, error)
}

// Distributor stores every platform post independently.
type Distributor struct {
	store   Store
	blogURL string
	logger  *zap.Logger
}

// NewDistributor creates a distributor linking posts under blogURL.
func NewDistributor(store Store, blogURL string, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{store: store, blogURL: blogURL, logger: logger.Named("social")}
}

// Distribute stores the posts derived from variants for postID. A failing
// platform does not stop the others; the stored posts are returned along
// with the joined errors.
func (d *Distributor) Distribute(ctx context.Context, postID uuid.UUID, slug string, variants types.SocialVariants) ([]db.SocialPost, error) {
	var (
		stored []db.SocialPost
		errs   []error
	)
	for _, p := range Build(variants, Permalink(d.blogURL, slug)) {
		sp, err := d.store.CreateSocialPost(ctx, postID, p.Platform, p.Content)
		if err != nil {
			d.logger.Warn("failed to store social post",
				zap.String("post_id", postID.String()),
				zap.String("platform", p.Platform),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Platform, err))
			continue
		}
		stored = append(stored, *sp)
	}
	return stored, errors.Join(errs...)
}
