// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Environment names accepted in AQL_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds process-wide settings for the CLI and the HTTP server.
// Per-query behaviour lives in the query description and per-schema
// behaviour in schema.Config; neither is configured here.
type Config struct {
	Env        string // "development" (default) or "production"
	LogLevel   string // debug, info, warn, error (default "info")
	ListenAddr string // HTTP listen address (default ":8080")
	DBPath     string // SQLite database path (default ":memory:")
	SchemaPath string // schema file or CUE package directory (optional)
	CacheSize  int    // compiled-query cache entries for the server (default 256)

	RateLimit   float64  // per-client requests per second on /v1, 0 disables (default 0)
	RateBurst   int      // per-client burst (default 10)
	CORSOrigins []string // allowed browser origins, empty disables CORS

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether compile errors should drop internal stacks.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// LoadFromEnv loads configuration from AQL_* environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Env:        os.Getenv("AQL_ENV"),
		LogLevel:   os.Getenv("AQL_LOG_LEVEL"),
		ListenAddr: os.Getenv("AQL_LISTEN_ADDR"),
		DBPath:     os.Getenv("AQL_DB"),
		SchemaPath: os.Getenv("AQL_SCHEMA"),
	}

	if v := os.Getenv("AQL_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("AQL_CACHE_SIZE must be a non-negative integer, got %q", v)
		}
		cfg.CacheSize = n
	} else {
		cfg.CacheSize = 256
	}

	if v := os.Getenv("AQL_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("AQL_RATE_LIMIT must be a non-negative number, got %q", v)
		}
		cfg.RateLimit = f
	}
	cfg.RateBurst = 10
	if v := os.Getenv("AQL_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("AQL_RATE_BURST must be a positive integer, got %q", v)
		}
		cfg.RateBurst = n
	}
	cfg.CORSOrigins = splitList(os.Getenv("AQL_CORS_ORIGINS"))

	// Defaults
	if cfg.Env == "" {
		cfg.Env = EnvDevelopment
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() && cfg.DBPath == ":memory:" {
		cfg.Warnings = append(cfg.Warnings, "AQL_DB not set, using an in-memory database in production")
	}

	return cfg, nil
}

// Validate checks values that flags may have overridden after loading.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Env) {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("AQL_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
