package ratelimit

import (
	"net/http"
	"time"

	"github.com/jonathan/blog-agent/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// FromConfig builds the limiter configuration from the application config.
func FromConfig(cfg config.RateLimitConfig) *Config {
	whitelist := make(map[string]bool, len(cfg.Whitelist))
	for _, ip := range cfg.Whitelist {
		whitelist[ip] = true
	}
	return &Config{
		Enabled:         cfg.Enabled,
		DefaultLimit:    cfg.DefaultLimit,
		DefaultWindow:   cfg.DefaultWindow,
		CleanupInterval: cfg.CleanupInterval,
		Whitelist:       whitelist,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Generation calls external models and is the most expensive.
		{Path: "/blogs/ai", Method: http.MethodPost, Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/blogs/ai/batch", Method: http.MethodPost, Limit: 2, Window: time.Hour, Burst: 1},
		{Path: "/blogs/ai/jobs", Method: http.MethodPost, Limit: 30, Window: time.Hour, Burst: 5},

		// Job polling is cheap but frequent.
		{Path: "/blogs/ai/jobs/", Method: http.MethodGet, Limit: 600, Window: time.Minute, Burst: 60},
	}
}
