// Package writing produces article drafts from a topic. It degrades from the
// configured model to a fixed fallback model and finally to a locally
// synthesized draft, and records which path produced the result.
package writing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/llm"
	"github.com/jonathan/blog-agent/internal/prompts"
	"github.com/jonathan/blog-agent/internal/schemas"
	"github.com/jonathan/blog-agent/internal/types"
)

// Config controls the chain.
type Config struct {
	Model               string
	Timeout             time.Duration
	LocalDraftOnFailure bool
	SiteName            string
}

// Outcome tags the path that produced a draft.
type Outcome struct {
	Provenance types.Provenance `json:"provenance"`
	Model      string           `json:"model,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Result is a draft plus its outcome.
type Result struct {
	Draft   types.Draft
	Outcome Outcome
}

// Chain is the text degradation chain.
type Chain struct {
	client  llm.Client
	prompts *prompts.Library
	cfg     Config
	logger  *zap.Logger
}

// NewChain creates a chain calling client.
func NewChain(client llm.Client, cfg Config, logger *zap.Logger) *Chain {
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		client:  client,
		prompts: prompts.Default(),
		cfg:     cfg,
		logger:  logger.Named("writing"),
	}
}

type failure int

const (
	failureNone failure = iota
	failureTimeout
	failureUnavailable
	failureEmpty
	failureOther
)

// attempt is the tagged result of one timeboxed model call.
type attempt struct {
	model   string
	raw     string
	failure failure
	err     error
}

// call runs one model request under its own deadline. The deferred cancel
// tears down the request when the timer wins.
func (c *Chain) call(ctx context.Context, prompt llm.Prompt, model string) attempt {
	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	raw, err := c.client.GenerateJSON(stageCtx, prompt, model)
	a := attempt{model: model, raw: raw, err: err}
	switch {
	case err == nil:
		a.failure = failureNone
	case ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		a.failure = failureTimeout
	case errors.Is(err, llm.ErrModelUnavailable):
		a.failure = failureUnavailable
	case errors.Is(err, llm.ErrEmptyResponse):
		a.failure = failureEmpty
	default:
		a.failure = failureOther
	}

	c.logger.Debug("model call finished",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("failure", int(a.failure)),
		zap.Error(err))
	return a
}

// Write produces a draft for req. It fails only when the provider rejects the
// request outright, when the caller's context ends, or when local drafting is
// disabled and the model timed out or answered with something unusable.
func (c *Chain) Write(ctx context.Context, req types.GenerationRequest) (*Result, error) {
	prompt, err := c.prompts.Blog(req, c.cfg.SiteName)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	provenance := types.ProvenancePrimaryModel
	var reason string

	a := c.call(ctx, prompt, c.cfg.Model)
	if a.failure == failureUnavailable {
		c.logger.Warn("model unavailable, falling back",
			zap.String("model", c.cfg.Model),
			zap.String("fallback", llm.FallbackModel),
			zap.Error(a.err))
		provenance = types.ProvenanceFallbackModel
		reason = fmt.Sprintf("model %s unavailable", c.cfg.Model)
		a = c.call(ctx, prompt, llm.FallbackModel)
	}

	switch a.failure {
	case failureTimeout:
		if !c.cfg.LocalDraftOnFailure {
			return nil, &TimeoutError{Stage: "text", Model: a.model, After: c.cfg.Timeout}
		}
		return c.localDraft(req, fmt.Sprintf("%s timed out after %s", a.model, c.cfg.Timeout)), nil
	case failureUnavailable, failureOther:
		if ctx.Err() != nil {
			return nil, fmt.Errorf("text generation aborted: %w", ctx.Err())
		}
		return nil, &APICallError{Model: a.model, Cause: a.err}
	}

	var draft *types.Draft
	if a.failure == failureEmpty {
		err = a.err
	} else {
		draft, err = parseDraft(a.raw)
	}
	if err != nil {
		if !c.cfg.LocalDraftOnFailure {
			return nil, &ParseError{Model: a.model, Message: "unusable article", Cause: err}
		}
		return c.localDraft(req, fmt.Sprintf("invalid response from %s", a.model)), nil
	}

	c.logger.Info("draft generated",
		zap.String("provenance", string(provenance)),
		zap.String("model", a.model),
		zap.String("title", draft.Title))
	return &Result{
		Draft:   *draft,
		Outcome: Outcome{Provenance: provenance, Model: a.model, Reason: reason},
	}, nil
}

func (c *Chain) localDraft(req types.GenerationRequest, reason string) *Result {
	c.logger.Warn("using local draft", zap.String("reason", reason))
	return &Result{
		Draft:   LocalDraft(req),
		Outcome: Outcome{Provenance: types.ProvenanceLocalDraft, Reason: reason},
	}
}

// parseDraft accepts fenced or chatty output as long as it carries a JSON
// object with a non-empty title, description and body.
func parseDraft(raw string) (*types.Draft, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateDraft(cleaned); err != nil {
		return nil, err
	}

	var d types.Draft
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}

	d.Title = strings.TrimSpace(d.Title)
	d.Slug = strings.TrimSpace(d.Slug)
	d.Description = truncateWords(strings.TrimSpace(d.Description), maxDescriptionLength)
	d.ImagePrompt = strings.TrimSpace(d.ImagePrompt)
	d.MetaTags = normalizeTags(d.MetaTags)
	d.Content = cleanBody(d.Content)
	if d.Content == "" {
		return nil, errors.New("content is empty after cleanup")
	}
	return &d, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
