package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/blog-agent/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{name: "default level", cfg: config.LogConfig{}, enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{name: "debug", cfg: config.LogConfig{Level: "debug"}, enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel - 1},
		{name: "warn development", cfg: config.LogConfig{Level: "warn", Development: true}, enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.muted))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestMust_Panics(t *testing.T) {
	assert.Panics(t, func() { Must(config.LogConfig{Level: "loud"}) })
}
