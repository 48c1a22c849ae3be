// Package types provides the data structures that flow between the generation stages.
package types

import "strings"

// Provenance records which strategy of the text chain produced a draft.
type Provenance string

// Provenance values
const (
	ProvenancePrimaryModel  Provenance = "primary_model"
	ProvenanceFallbackModel Provenance = "fallback_model"
	ProvenanceLocalDraft    Provenance = "local_draft"
)

// ImageKind records which stage of the image chain produced the cover, if any.
type ImageKind string

// ImageKind values
const (
	ImageNative               ImageKind = "native"
	ImageRemotePlaceholder    ImageKind = "remote_placeholder"
	ImageSyntheticPlaceholder ImageKind = "synthetic_placeholder"
	ImageNone                 ImageKind = "none"
)

// GenerationRequest is the immutable input of a single generation.
type GenerationRequest struct {
	Topic    string   `json:"prompt" validate:"required,min=3,max=4000"`
	Keywords []string `json:"keywords,omitempty" validate:"max=20,dive,required,max=60"`
	Language string   `json:"language,omitempty" validate:"max=40"`
	Tone     string   `json:"tone,omitempty" validate:"max=60"`
	Audience string   `json:"audience,omitempty" validate:"max=120"`
}

// Draft is the structured article returned by the model, or synthesized locally.
// JSON names match the model's output contract.
type Draft struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug,omitempty"`
	Description     string   `json:"description"`
	Content         string   `json:"content"`
	MetaTags        []string `json:"metaTags,omitempty"`
	ImagePrompt     string   `json:"imagePrompt,omitempty"`
	SocialLinkedin  string   `json:"socialLinkedin,omitempty"`
	SocialInstagram string   `json:"socialInstagram,omitempty"`
}

// SocialVariants returns the short-form texts carried by the draft.
func (d Draft) SocialVariants() SocialVariants {
	return SocialVariants{
		LinkedIn:  strings.TrimSpace(d.SocialLinkedin),
		Instagram: strings.TrimSpace(d.SocialInstagram),
	}
}

// SocialVariants holds per-platform short-form texts derived from an article.
type SocialVariants struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// IsEmpty reports whether no platform text is present.
func (s SocialVariants) IsEmpty() bool {
	return s.LinkedIn == "" && s.Instagram == ""
}

// CoverImage is an image payload with its inferred format.
type CoverImage struct {
	Data   []byte    `json:"-"`
	Format string    `json:"format"`
	Kind   ImageKind `json:"kind"`
}

// Filename returns cover.<format>, or "" when there are no bytes.
func (c *CoverImage) Filename() string {
	if c == nil || len(c.Data) == 0 || c.Format == "" {
		return ""
	}
	return "cover." + c.Format
}

// ContentType maps the format to a MIME type for upload.
func (c *CoverImage) ContentType() string {
	if c == nil {
		return ""
	}
	switch c.Format {
	case "jpg":
		return "image/jpeg"
	case "svg":
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// GeneratedContent is the assembled result of one generation. A new value is
// produced for every generation and it is not modified afterwards.
type GeneratedContent struct {
	Title         string         `json:"title"`
	SlugCandidate string         `json:"slug_candidate"`
	Description   string         `json:"description"`
	Body          string         `json:"body"`
	Tags          []string       `json:"tags"`
	Cover         *CoverImage    `json:"cover,omitempty"`
	Social        SocialVariants `json:"social"`
	Provenance    Provenance     `json:"provenance"`
	ImageKind     ImageKind      `json:"image_kind"`
}
