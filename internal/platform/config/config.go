// Package config loads application configuration from environment variables.
// All variables use the PREP_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	AI         AIConfig
	Log        LogConfig
	RosterPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// the service on the in-memory store.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL
// disables the generation result cache.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for the generation provider.
type AIConfig struct {
	Google GoogleConfig
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with PREP_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PREP_SERVER_PORT", 8080),
			Host: envStr("PREP_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("PREP_DATABASE_URL", ""),
			MaxConns: envInt("PREP_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("PREP_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("PREP_CACHE_URL", ""),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("PREP_AI_GOOGLE_API_KEY", ""),
				Model:  envStr("PREP_AI_GOOGLE_MODEL", "gemini-2.5-flash"),
			},
		},
		Log: LogConfig{
			Level:  envStr("PREP_LOG_LEVEL", "info"),
			Format: envStr("PREP_LOG_FORMAT", "json"),
		},
		RosterPath: envStr("PREP_ROSTER_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable. A missing provider key
// is allowed: the generator falls back to its canned offline payload.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PREP_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("PREP_DATABASE_MIN_CONNS (%d) exceeds PREP_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

// HasAIProvider returns true if a generation provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
