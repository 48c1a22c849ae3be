package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 15*time.Second, cfg.Timeouts.TextGeneration)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.ImageGeneration)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Download)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Request)
	assert.GreaterOrEqual(t, cfg.Timeouts.Request, cfg.Timeouts.Generation())
	assert.Equal(t, 1, cfg.Queue.Concurrency)
	assert.Equal(t, 2, cfg.Queue.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Queue.BackoffBase)
	assert.Equal(t, time.Hour, cfg.Queue.CompletedMaxAge)
	assert.Equal(t, 24*time.Hour, cfg.Queue.FailedMaxAge)
	assert.Equal(t, int64(1000), cfg.Queue.CompletedMaxCount)
	assert.Equal(t, "1536x1024", cfg.Image.Size)
	assert.True(t, cfg.Image.Enabled)
	assert.True(t, cfg.Image.PlaceholderEnabled)
	assert.True(t, cfg.Text.LocalDraftOnFailure)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AI_TEXT_TIMEOUT", "3s")
	t.Setenv("AI_IMAGE_ENABLED", "false")
	t.Setenv("AI_QUEUE_CONCURRENCY", "4")
	t.Setenv("AI_IMAGE_SIZE", "800x600")
	t.Setenv("AI_TEXT_MODEL", "gemini-custom")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Timeouts.TextGeneration)
	assert.False(t, cfg.Image.Enabled)
	assert.Equal(t, 4, cfg.Queue.Concurrency)
	assert.Equal(t, "800x600", cfg.Image.Size, "size is normalized by the image chain, not the loader")
	assert.Equal(t, "gemini-custom", cfg.Text.Model)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.RateLimit.Whitelist)
}

func TestLoad_ConfigFile(t *testing.T) {
	content := `
timeouts:
  text_generation: 10s
  download: 2s
queue:
  attempts: 5
site:
  name: Houser
  blog_url: https://example.com/blog
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Timeouts.TextGeneration)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Download)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.ImageGeneration, "unset keys keep their defaults")
	assert.Equal(t, 5, cfg.Queue.Attempts)
	assert.Equal(t, "Houser", cfg.Site.Name)
	assert.Equal(t, "https://example.com/blog", cfg.Site.BlogURL)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "zero download timeout",
			content: "timeouts:\n  download: 0s\n",
			field:   "Download",
		},
		{
			name:    "zero concurrency",
			content: "queue:\n  concurrency: 0\n",
			field:   "Concurrency",
		},
		{
			name:    "request shorter than stage deadlines",
			content: "timeouts:\n  request: 30s\n",
			field:   "Request",
		},
		{
			name:    "unknown log level",
			content: "log:\n  level: verbose\n",
			field:   "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := Load(path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestTimeBudget_Generation(t *testing.T) {
	b := TimeBudget{
		Request:         time.Minute,
		TextGeneration:  25 * time.Second,
		ImageGeneration: 20 * time.Second,
		Download:        8 * time.Second,
	}
	assert.Equal(t, 86*time.Second, b.Generation())

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Timeouts = b
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1m26s")

	cfg.Timeouts.Request = 86 * time.Second
	assert.NoError(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(nil))
	assert.Equal(t, []string{"a", "b"}, splitList([]string{"a, b"}))
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a", "b,,c "}))
}
