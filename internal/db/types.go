package db

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a posts row.
type Post struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        *string    `json:"slug,omitempty"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	MetaTags    []string   `json:"meta_tags"`
	Status      string     `json:"status"`
	AuthorID    uuid.UUID  `json:"author_id"`
	CoverURL    *string    `json:"cover_url,omitempty"`
	CoverPath   *string    `json:"-"`
	ImageKind   string     `json:"image_kind"`
	Provenance  string     `json:"provenance"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SlugValue returns the slug or "".
func (p *Post) SlugValue() string {
	if p == nil || p.Slug == nil {
		return ""
	}
	return *p.Slug
}

// PostInput holds the fields needed to create a post.
type PostInput struct {
	Title       string
	Slug        string
	Description string
	Content     string
	MetaTags    []string
	Status      string
	AuthorID    uuid.UUID
	CoverURL    string
	CoverPath   string
	ImageKind   string
	Provenance  string
	PublishedAt *time.Time
}

// Social platforms
const (
	PlatformLinkedIn  = "LINKEDIN"
	PlatformInstagram = "INSTAGRAM"
)

// SocialPost represents a social_posts row.
type SocialPost struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	Platform  string    `json:"platform"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
