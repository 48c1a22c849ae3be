package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxBatchSize bounds the number of topics accepted by one batch request.
const MaxBatchSize = 20

// Post status values
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("batchsize", func(fl validator.FieldLevel) bool {
		return fl.Field().Len() <= MaxBatchSize
	})
	return v
}

// PublishRequest is a single generation plus the authoring metadata of the post
// it creates. It is also the payload of a queued job.
type PublishRequest struct {
	GenerationRequest
	AuthorID    string     `json:"author_id" validate:"required,uuid"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Validate checks the request fields.
func (r *PublishRequest) Validate() error {
	return validate.Struct(r)
}

// EffectiveStatus returns the requested status, DRAFT when unset.
func (r *PublishRequest) EffectiveStatus() string {
	if r.Status == "" {
		return StatusDraft
	}
	return r.Status
}

// BatchRequest is an ordered list of topics sharing authoring metadata.
type BatchRequest struct {
	Prompts     []string   `json:"prompts" validate:"required,min=1,batchsize,dive,required,min=3,max=4000"`
	Keywords    []string   `json:"keywords,omitempty" validate:"max=20,dive,required,max=60"`
	Language    string     `json:"language,omitempty" validate:"max=40"`
	Tone        string     `json:"tone,omitempty" validate:"max=60"`
	Audience    string     `json:"audience,omitempty" validate:"max=120"`
	AuthorID    string     `json:"author_id" validate:"required,uuid"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Validate checks the request fields.
func (r *BatchRequest) Validate() error {
	return validate.Struct(r)
}

// Requests expands the batch into one PublishRequest per topic, in input order.
func (r *BatchRequest) Requests() []PublishRequest {
	out := make([]PublishRequest, 0, len(r.Prompts))
	for _, topic := range r.Prompts {
		out = append(out, PublishRequest{
			GenerationRequest: GenerationRequest{
				Topic:    topic,
				Keywords: r.Keywords,
				Language: r.Language,
				Tone:     r.Tone,
				Audience: r.Audience,
			},
			AuthorID:    r.AuthorID,
			Status:      r.Status,
			PublishedAt: r.PublishedAt,
		})
	}
	return out
}
