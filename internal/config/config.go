// Package config provides configuration loading and validation for the blog agent.
// Values come from built-in defaults, an optional config file, and the environment,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the single validated configuration value shared by every component.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Timeouts  TimeBudget      `mapstructure:"timeouts"`
	Text      TextConfig      `mapstructure:"text"`
	Image     ImageConfig     `mapstructure:"image"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Site      SiteConfig      `mapstructure:"site"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the job queue backend address.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// GeminiConfig holds credentials for the text generation provider.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// TimeBudget holds the independent deadlines applied to each external call.
// Exceeding one never extends or blocks another.
type TimeBudget struct {
	Request         time.Duration `mapstructure:"request" validate:"gt=0"`
	TextGeneration  time.Duration `mapstructure:"text_generation" validate:"gt=0"`
	ImageGeneration time.Duration `mapstructure:"image_generation" validate:"gt=0"`
	Download        time.Duration `mapstructure:"download" validate:"gt=0"`
}

// Generation is the longest a single generation can spend in its stages: the
// primary and fallback text calls, native image generation, the generated
// image download and the placeholder download.
func (b TimeBudget) Generation() time.Duration {
	return 2*b.TextGeneration + b.ImageGeneration + 2*b.Download
}

// TextConfig controls the text degradation chain.
type TextConfig struct {
	Model               string `mapstructure:"model" validate:"required"`
	LocalDraftOnFailure bool   `mapstructure:"local_draft_on_failure"`
}

// ImageConfig controls the image acquisition chain.
type ImageConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Model              string `mapstructure:"model"`
	Size               string `mapstructure:"size"`
	BaseURL            string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey             string `mapstructure:"api_key"`
	PlaceholderEnabled bool   `mapstructure:"placeholder_enabled"`
	PlaceholderURL     string `mapstructure:"placeholder_url"`
}

// QueueConfig controls the background job queue and its workers.
type QueueConfig struct {
	Name              string        `mapstructure:"name" validate:"required"`
	Prefix            string        `mapstructure:"prefix" validate:"required"`
	Concurrency       int           `mapstructure:"concurrency" validate:"min=1"`
	Attempts          int           `mapstructure:"attempts" validate:"min=1"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" validate:"gte=0"`
	PollInterval      time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	LockDuration      time.Duration `mapstructure:"lock_duration" validate:"gt=0"`
	CompletedMaxAge   time.Duration `mapstructure:"completed_max_age" validate:"gt=0"`
	CompletedMaxCount int64         `mapstructure:"completed_max_count" validate:"min=1"`
	FailedMaxAge      time.Duration `mapstructure:"failed_max_age" validate:"gt=0"`
	FailedMaxCount    int64         `mapstructure:"failed_max_count" validate:"min=1"`
}

// StorageConfig points at the object storage used for cover images.
// An empty URL disables cover uploads.
type StorageConfig struct {
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	Key    string `mapstructure:"key"`
	Bucket string `mapstructure:"bucket"`
	Folder string `mapstructure:"folder"`
}

// SiteConfig describes the public site the posts are published to.
type SiteConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	BlogURL string `mapstructure:"blog_url" validate:"omitempty,url"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit" validate:"min=0"`
	DefaultWindow   time.Duration `mapstructure:"default_window" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
	Whitelist       []string      `mapstructure:"whitelist"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":                 "PORT",
	"database.url":                "DATABASE_URL",
	"redis.url":                   "REDIS_URL",
	"gemini.api_key":              "GEMINI_API_KEY",
	"timeouts.request":            "AI_REQUEST_TIMEOUT",
	"timeouts.text_generation":    "AI_TEXT_TIMEOUT",
	"timeouts.image_generation":   "AI_IMAGE_TIMEOUT",
	"timeouts.download":           "AI_DOWNLOAD_TIMEOUT",
	"text.model":                  "AI_TEXT_MODEL",
	"text.local_draft_on_failure": "AI_LOCAL_DRAFT",
	"image.enabled":               "AI_IMAGE_ENABLED",
	"image.model":                 "AI_IMAGE_MODEL",
	"image.size":                  "AI_IMAGE_SIZE",
	"image.base_url":              "AI_IMAGE_BASE_URL",
	"image.api_key":               "OPENAI_API_KEY",
	"image.placeholder_enabled":   "AI_IMAGE_PLACEHOLDER",
	"image.placeholder_url":       "AI_IMAGE_PLACEHOLDER_URL",
	"queue.concurrency":           "AI_QUEUE_CONCURRENCY",
	"queue.attempts":              "AI_QUEUE_ATTEMPTS",
	"queue.backoff_base":          "AI_QUEUE_BACKOFF",
	"storage.url":                 "SUPABASE_URL",
	"storage.key":                 "SUPABASE_SERVICE_ROLE_KEY",
	"storage.bucket":              "SUPABASE_BUCKET",
	"site.name":                   "SITE_NAME",
	"site.blog_url":               "FRONT_BLOG_URL",
	"log.level":                   "LOG_LEVEL",
	"log.development":             "LOG_DEVELOPMENT",
	"rate_limit.enabled":          "RATE_LIMIT_ENABLED",
	"rate_limit.default_limit":    "RATE_LIMIT_DEFAULT_LIMIT",
	"rate_limit.default_window":   "RATE_LIMIT_DEFAULT_WINDOW",
	"rate_limit.cleanup_interval": "RATE_LIMIT_CLEANUP_INTERVAL",
	"rate_limit.whitelist":        "RATE_LIMIT_WHITELIST",
	"queue.poll_interval":         "AI_QUEUE_POLL_INTERVAL",
	"queue.lock_duration":         "AI_QUEUE_LOCK_DURATION",
	"queue.completed_max_age":     "AI_QUEUE_COMPLETED_MAX_AGE",
	"queue.failed_max_age":        "AI_QUEUE_FAILED_MAX_AGE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("timeouts.request", 60*time.Second)
	v.SetDefault("timeouts.text_generation", 15*time.Second)
	v.SetDefault("timeouts.image_generation", 15*time.Second)
	v.SetDefault("timeouts.download", 5*time.Second)

	v.SetDefault("text.model", "gemini-2.5-flash")
	v.SetDefault("text.local_draft_on_failure", true)

	v.SetDefault("image.enabled", true)
	v.SetDefault("image.model", "gpt-image-1")
	v.SetDefault("image.size", "1536x1024")
	v.SetDefault("image.base_url", "https://api.openai.com/v1")
	v.SetDefault("image.placeholder_enabled", true)
	v.SetDefault("image.placeholder_url", "https://placehold.co/{width}x{height}.jpg?text={text}")

	v.SetDefault("queue.name", "ai-blog")
	v.SetDefault("queue.prefix", "blog-agent")
	v.SetDefault("queue.concurrency", 1)
	v.SetDefault("queue.attempts", 2)
	v.SetDefault("queue.backoff_base", 2*time.Second)
	v.SetDefault("queue.poll_interval", time.Second)
	v.SetDefault("queue.lock_duration", 30*time.Second)
	v.SetDefault("queue.completed_max_age", time.Hour)
	v.SetDefault("queue.completed_max_count", 1000)
	v.SetDefault("queue.failed_max_age", 24*time.Hour)
	v.SetDefault("queue.failed_max_count", 1000)

	v.SetDefault("storage.bucket", "public")
	v.SetDefault("storage.folder", "blogs")

	v.SetDefault("site.name", "Blog")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 1000)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.cleanup_interval", 5*time.Minute)
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.RateLimit.Whitelist = splitList(cfg.RateLimit.Whitelist)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports the first violation. The
// request deadline must cover every stage deadline of one generation, so the
// synchronous path never cuts a degradation short.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if stages := c.Timeouts.Generation(); c.Timeouts.Request < stages {
		return fmt.Errorf("config error: 'Config.Timeouts.Request' (%s) is shorter than the stage deadlines of one generation (%s)",
			c.Timeouts.Request, stages)
	}
	return nil
}

// splitList accepts both a proper list and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
