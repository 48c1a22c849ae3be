package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/slug"
)

// DefaultBackfillBatch is the page size used when scanning for posts without a slug.
const DefaultBackfillBatch = 100

// BackfillStore lists and updates posts that have no slug.
type BackfillStore interface {
	ListPostsMissingSlug(ctx context.Context, limit int) ([]db.Post, error)
	UpdatePostSlug(ctx context.Context, id uuid.UUID, slug string) error
}

// BackfillReport counts the outcome of a backfill.
type BackfillReport struct {
	Updated int
	Failed  int
}

// BackfillSlugs assigns a unique slug, derived from the title, to every post
// that has none. Each post is excluded from its own collision check. A post
// that cannot be updated is logged and skipped.
func BackfillSlugs(ctx context.Context, store BackfillStore, slugs SlugAllocator, batch int, logger *zap.Logger) (BackfillReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("backfill")
	if batch <= 0 {
		batch = DefaultBackfillBatch
	}

	var report BackfillReport
	skipped := map[uuid.UUID]bool{}
	for {
		// Failed posts stay in the listing, so widen the page past them.
		posts, err := store.ListPostsMissingSlug(ctx, batch+len(skipped))
		if err != nil {
			return report, err
		}

		seen := false
		for i := range posts {
			post := &posts[i]
			if skipped[post.ID] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			seen = true

			assigned, err := backfillOne(ctx, store, slugs, post)
			if err != nil {
				report.Failed++
				skipped[post.ID] = true
				logger.Warn("failed to backfill slug", zap.String("post_id", post.ID.String()), zap.Error(err))
				continue
			}
			report.Updated++
			logger.Info("slug assigned", zap.String("post_id", post.ID.String()), zap.String("slug", assigned))
		}

		if !seen {
			return report, nil
		}
	}
}

func backfillOne(ctx context.Context, store BackfillStore, slugs SlugAllocator, post *db.Post) (string, error) {
	id := post.ID
	for attempt := 1; ; attempt++ {
		candidate, err := slugs.Allocate(ctx, slug.Base(post.Title), &id)
		if err != nil {
			return "", err
		}
		err = store.UpdatePostSlug(ctx, id, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, db.ErrSlugConflict) || attempt >= maxSlugAttempts {
			return "", fmt.Errorf("failed to assign slug %q: %w", candidate, err)
		}
	}
}
