// Package imaging acquires a cover image for an article. It tries native
// generation first, then a remote placeholder, then a locally rendered SVG,
// and never fails the caller.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/fetch"
	"github.com/jonathan/blog-agent/internal/imagegen"
	"github.com/jonathan/blog-agent/internal/types"
)

const promptStyle = ", realistic photographic style, high quality, 16:9"

// Generator produces images from a prompt.
type Generator interface {
	Generate(ctx context.Context, r imagegen.Request) (*imagegen.Image, error)
}

// Downloader fetches a URL under its own deadline.
type Downloader interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Config controls which stages run.
type Config struct {
	Enabled            bool
	Model              string
	Size               string
	Timeout            time.Duration
	PlaceholderEnabled bool
	PlaceholderURL     string
	SiteName           string
}

// Outcome is the tagged result of Acquire.
type Outcome struct {
	Kind   types.ImageKind
	Data   []byte
	Format string
	Reason string
}

// Filename returns cover.<format> when there are bytes.
func (o Outcome) Filename() string {
	return o.Cover().Filename()
}

// Cover converts the outcome to a cover image, or nil for ImageNone.
func (o Outcome) Cover() *types.CoverImage {
	if o.Kind == types.ImageNone || len(o.Data) == 0 {
		return nil
	}
	return &types.CoverImage{Data: o.Data, Format: o.Format, Kind: o.Kind}
}

// Chain is the image degradation chain.
type Chain struct {
	gen    Generator
	dl     Downloader
	cfg    Config
	logger *zap.Logger
}

// NewChain creates a chain. gen may be nil when native generation is not
// configured.
func NewChain(gen Generator, dl Downloader, cfg Config, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("imaging")

	size := NormalizeSize(cfg.Size)
	if size != cfg.Size {
		logger.Warn("image size not supported, normalized",
			zap.String("requested", cfg.Size),
			zap.String("size", size))
	}
	cfg.Size = size
	if gen == nil {
		cfg.Enabled = false
	}

	logger.Info("image chain configured",
		zap.Bool("enabled", cfg.Enabled),
		zap.String("model", cfg.Model),
		zap.String("size", cfg.Size),
		zap.Bool("placeholder", cfg.PlaceholderEnabled))
	return &Chain{gen: gen, dl: dl, cfg: cfg, logger: logger}
}

// Size returns the normalized size.
func (c *Chain) Size() string { return c.cfg.Size }

// Acquire returns the best cover it can within the stage deadlines.
func (c *Chain) Acquire(ctx context.Context, title, imagePrompt string) Outcome {
	if c.cfg.Enabled {
		out, err := c.native(ctx, title, imagePrompt)
		if err == nil {
			return out
		}
		var apiErr *imagegen.APIError
		if errors.As(err, &apiErr) && apiErr.Unavailable() {
			c.logger.Info("image generation not available, skipping native cover", zap.Error(err))
		} else {
			c.logger.Warn("native image generation failed", zap.Error(err))
		}
	} else {
		c.logger.Debug("native image generation disabled")
	}

	if ctx.Err() != nil {
		return Outcome{Kind: types.ImageNone, Reason: ctx.Err().Error()}
	}

	if !c.cfg.PlaceholderEnabled {
		c.logger.Info("placeholder disabled, no cover attached")
		return Outcome{Kind: types.ImageNone, Reason: "placeholder disabled"}
	}

	width, height := Dimensions(c.cfg.Size)
	out, err := c.remotePlaceholder(ctx, width, height, title)
	if err == nil {
		return out
	}
	c.logger.Warn("remote placeholder failed, rendering svg", zap.Error(err))

	label := c.cfg.SiteName
	if title == "" {
		title = label
	}
	return Outcome{
		Kind:   types.ImageSyntheticPlaceholder,
		Data:   SyntheticPlaceholder(width, height, title, label),
		Format: FormatSVG,
		Reason: err.Error(),
	}
}

func (c *Chain) native(ctx context.Context, title, imagePrompt string) (Outcome, error) {
	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	subject := strings.TrimSpace(imagePrompt)
	if subject == "" {
		subject = title
	}
	img, err := c.gen.Generate(stageCtx, imagegen.Request{
		Model:  c.cfg.Model,
		Prompt: subject + promptStyle,
		Size:   c.cfg.Size,
	})
	if err != nil {
		return Outcome{}, err
	}

	c.logger.Info("image response", zap.Bool("has_data", len(img.Data) > 0), zap.Bool("has_url", img.URL != ""))
	if len(img.Data) > 0 {
		return Outcome{Kind: types.ImageNative, Data: img.Data, Format: InferFormat(img.Data, "")}, nil
	}
	if img.URL == "" || c.dl == nil {
		return Outcome{}, imagegen.ErrNoImage
	}

	// The download has its own deadline, independent of the generation call.
	res, err := c.dl.Get(ctx, img.URL)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to fetch generated image: %w", err)
	}
	return Outcome{Kind: types.ImageNative, Data: res.Body, Format: InferFormat(res.Body, res.ContentType)}, nil
}

func (c *Chain) remotePlaceholder(ctx context.Context, width, height int, title string) (Outcome, error) {
	if c.dl == nil || c.cfg.PlaceholderURL == "" {
		return Outcome{}, errors.New("no placeholder source configured")
	}
	text := title
	if text == "" {
		text = c.cfg.SiteName
	}
	u := PlaceholderURL(c.cfg.PlaceholderURL, width, height, text)
	c.logger.Debug("fetching placeholder cover", zap.String("url", u))

	res, err := c.dl.Get(ctx, u)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Kind:   types.ImageRemotePlaceholder,
		Data:   res.Body,
		Format: InferFormat(res.Body, res.ContentType),
	}, nil
}
