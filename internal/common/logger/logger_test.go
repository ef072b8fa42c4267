package logger

import (
	"os"
	"path/filepath"
	"testing"

	"estate-portal/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log := New(config.LogConfig{Level: "debug", Format: "json", Output: path})
	log.Info("hello", zap.String("unit", "A-12"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"unit":"A-12"`)
}

func TestForServiceAddsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.log")
	cfg := &config.Config{
		Environment: "production",
		Log:         config.LogConfig{Level: "info", Format: "console", Output: path},
	}

	log := ForService(cfg, "catalog")
	log.Info("started")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"catalog"`)
	assert.Contains(t, string(data), `"env":"production"`)
}
