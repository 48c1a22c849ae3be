// Package pipeline orchestrates one post generation: text, cover image, slug,
// upload, persistence and social distribution, in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/imaging"
	"github.com/jonathan/blog-agent/internal/pipeline/steps"
	"github.com/jonathan/blog-agent/internal/slug"
	"github.com/jonathan/blog-agent/internal/storage"
	"github.com/jonathan/blog-agent/internal/types"
	"github.com/jonathan/blog-agent/internal/writing"
)

// maxSlugAttempts bounds re-allocation after a write-time slug conflict.
const maxSlugAttempts = 3

// TextWriter produces drafts.
type TextWriter interface {
	Write(ctx context.Context, req types.GenerationRequest) (*writing.Result, error)
}

// ImageAcquirer produces cover images.
type ImageAcquirer interface {
	Acquire(ctx context.Context, title, imagePrompt string) imaging.Outcome
}

// SlugAllocator picks a free slug for a base.
type SlugAllocator interface {
	Allocate(ctx context.Context, base string, excludeID *uuid.UUID) (string, error)
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, in *db.PostInput) (*db.Post, error)
}

// CoverUploader stores cover images.
type CoverUploader interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (*storage.Object, error)
	Remove(ctx context.Context, storagePath string) error
}

// SocialDistributor stores the short-form posts of an article.
type SocialDistributor interface {
	Distribute(ctx context.Context, postID uuid.UUID, slug string, variants types.SocialVariants) ([]db.SocialPost, error)
}

// Deps are the collaborators of a Service. Covers and Social may be nil.
type Deps struct {
	Text   TextWriter
	Images ImageAcquirer
	Slugs  SlugAllocator
	Posts  PostStore
	Covers CoverUploader
	Social SocialDistributor
	Logger *zap.Logger
}

// Service runs generations.
type Service struct {
	text   TextWriter
	images ImageAcquirer
	slugs  SlugAllocator
	posts  PostStore
	covers CoverUploader
	social SocialDistributor
	logger *zap.Logger
}

// NewService creates a service.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		text:   d.Text,
		images: d.Images,
		slugs:  d.Slugs,
		posts:  d.Posts,
		covers: d.Covers,
		social: d.Social,
		logger: logger.Named("pipeline"),
	}
}

// Result is a created post with how it was produced.
type Result struct {
	Post        *db.Post         `json:"post"`
	SocialPosts []db.SocialPost  `json:"social_posts,omitempty"`
	Provenance  types.Provenance `json:"provenance"`
	ImageKind   types.ImageKind  `json:"image_kind"`
	Reason      string           `json:"reason,omitempty"`
}

// Generate runs the text and image chains and assembles the content. It
// fails only when the text chain does.
func (s *Service) Generate(ctx context.Context, req types.GenerationRequest) (*types.GeneratedContent, error) {
	return s.generate(ctx, req, newTracker(nil))
}

func (s *Service) generate(ctx context.Context, req types.GenerationRequest, run *tracker) (*types.GeneratedContent, error) {
	if err := run.start(steps.Text, "writing article"); err != nil {
		return nil, err
	}
	written, err := s.text.Write(ctx, req)
	if err != nil {
		return nil, err
	}
	draft := written.Draft

	if err := run.start(steps.Image, "acquiring cover image"); err != nil {
		return nil, err
	}
	image := s.images.Acquire(ctx, draft.Title, draft.ImagePrompt)
	s.logger.Info("content generated",
		zap.String("title", draft.Title),
		zap.String("provenance", string(written.Outcome.Provenance)),
		zap.String("image_kind", string(image.Kind)))

	base := draft.Slug
	if strings.TrimSpace(base) == "" {
		base = draft.Title
	}
	return &types.GeneratedContent{
		Title:         draft.Title,
		SlugCandidate: slug.Base(base),
		Description:   draft.Description,
		Body:          draft.Content,
		Tags:          draft.MetaTags,
		Cover:         image.Cover(),
		Social:        draft.SocialVariants(),
		Provenance:    written.Outcome.Provenance,
		ImageKind:     image.Kind,
	}, nil
}

// Publish generates content for req and creates the post.
func (s *Service) Publish(ctx context.Context, req types.PublishRequest, progress ProgressCallback) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	authorID, err := uuid.Parse(req.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author id: %w", err)
	}

	started := time.Now()
	run := newTracker(progress)
	content, err := s.generate(ctx, req.GenerationRequest, run)
	if err != nil {
		return nil, err
	}

	post, cover, err := s.persist(ctx, content, &db.PostInput{
		Title:       content.Title,
		Description: content.Description,
		Content:     content.Body,
		MetaTags:    content.Tags,
		Status:      req.EffectiveStatus(),
		AuthorID:    authorID,
		ImageKind:   string(content.ImageKind),
		Provenance:  string(content.Provenance),
		PublishedAt: req.PublishedAt,
	}, run)
	if err != nil {
		if cover.Path != "" {
			if rmErr := s.covers.Remove(context.WithoutCancel(ctx), cover.Path); rmErr != nil {
				s.logger.Warn("failed to remove orphaned cover", zap.String("path", cover.Path), zap.Error(rmErr))
			}
		}
		return nil, err
	}

	result := &Result{Post: post, Provenance: content.Provenance, ImageKind: content.ImageKind}
	if s.social != nil && !content.Social.IsEmpty() {
		if err := run.start(steps.Social, "distributing social posts"); err != nil {
			return nil, err
		}
		result.SocialPosts, err = s.social.Distribute(ctx, post.ID, post.SlugValue(), content.Social)
		if err != nil {
			s.logger.Warn("social distribution incomplete", zap.String("post_id", post.ID.String()), zap.Error(err))
		}
	}

	if err := run.start(steps.Done, "post created"); err != nil {
		return nil, err
	}
	s.logger.Info("post created",
		zap.String("post_id", post.ID.String()),
		zap.String("slug", post.SlugValue()),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}

// uploadCover stores the cover and returns its location. Upload failures are
// logged and the post is created without a cover.
func (s *Service) uploadCover(ctx context.Context, cover *types.CoverImage) storage.Object {
	if cover == nil || s.covers == nil {
		return storage.Object{}
	}
	obj, err := s.covers.Upload(ctx, cover.Filename(), cover.Data, cover.ContentType())
	if err != nil {
		s.logger.Warn("cover upload failed, continuing without cover", zap.Error(err))
		return storage.Object{}
	}
	s.logger.Info("cover uploaded", zap.String("path", obj.Path), zap.Int("bytes", len(cover.Data)))
	return *obj
}

// persist allocates a slug, uploads the cover once and inserts the post,
// re-allocating when another writer took the slug in between. The returned
// object is set whenever a cover was uploaded, even on error.
func (s *Service) persist(ctx context.Context, content *types.GeneratedContent, in *db.PostInput, run *tracker) (*db.Post, storage.Object, error) {
	var (
		cover   storage.Object
		lastErr error
	)
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		if err := run.start(steps.Slug, "allocating slug"); err != nil {
			return nil, cover, err
		}
		allocated, err := s.slugs.Allocate(ctx, content.SlugCandidate, nil)
		if err != nil {
			return nil, cover, fmt.Errorf("failed to allocate slug: %w", err)
		}
		in.Slug = allocated

		if attempt == 1 {
			if err := run.start(steps.Upload, "uploading cover image"); err != nil {
				return nil, cover, err
			}
			cover = s.uploadCover(ctx, content.Cover)
			in.CoverURL = cover.URL
			in.CoverPath = cover.Path
		}

		if err := run.start(steps.Persist, "saving post"); err != nil {
			return nil, cover, err
		}
		post, err := s.posts.CreatePost(ctx, in)
		if err == nil {
			return post, cover, nil
		}
		if !errors.Is(err, db.ErrSlugConflict) {
			return nil, cover, err
		}
		s.logger.Warn("slug taken concurrently, reallocating",
			zap.String("slug", allocated),
			zap.Int("attempt", attempt))
		lastErr = err
	}
	return nil, cover, fmt.Errorf("gave up after %d slug conflicts: %w", maxSlugAttempts, lastErr)
}
