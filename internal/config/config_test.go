package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AQL_ENV", "AQL_LOG_LEVEL", "AQL_LISTEN_ADDR", "AQL_DB", "AQL_SCHEMA", "AQL_CACHE_SIZE", "AQL_RATE_LIMIT", "AQL_RATE_BURST", "AQL_CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Empty(t, cfg.SchemaPath)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, 10, cfg.RateBurst)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("AQL_ENV", "production")
	t.Setenv("AQL_LOG_LEVEL", "debug")
	t.Setenv("AQL_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("AQL_DB", "/tmp/budget.db")
	t.Setenv("AQL_SCHEMA", "schema.cue")
	t.Setenv("AQL_CACHE_SIZE", "0")
	t.Setenv("AQL_RATE_LIMIT", "2.5")
	t.Setenv("AQL_RATE_BURST", "5")
	t.Setenv("AQL_CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/budget.db", cfg.DBPath)
	assert.Equal(t, "schema.cue", cfg.SchemaPath)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_ProductionInMemoryWarns(t *testing.T) {
	clearEnv(t)
	t.Setenv("AQL_ENV", "PRODUCTION")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "in-memory")
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"env", "AQL_ENV", "staging", `AQL_ENV must be "development" or "production"`},
		{"log level", "AQL_LOG_LEVEL", "loud", `unknown log level "loud"`},
		{"cache size", "AQL_CACHE_SIZE", "-1", "AQL_CACHE_SIZE must be a non-negative integer"},
		{"cache size text", "AQL_CACHE_SIZE", "many", "AQL_CACHE_SIZE must be a non-negative integer"},
		{"rate limit", "AQL_RATE_LIMIT", "-2", "AQL_RATE_LIMIT must be a non-negative number"},
		{"rate burst", "AQL_RATE_BURST", "0", "AQL_RATE_BURST must be a positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), tt.level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AQL_DB", "from-env.db")

	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nAQL_LISTEN_ADDR=\":9090\"\nAQL_DB=from-file.db\nnot a pair\nAQL_LOG_LEVEL='warn'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, ":9090", os.Getenv("AQL_LISTEN_ADDR"))
	assert.Equal(t, "from-env.db", os.Getenv("AQL_DB"))
	assert.Equal(t, "warn", os.Getenv("AQL_LOG_LEVEL"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
