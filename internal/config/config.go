// Package config provides console configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all console configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	APIURL      string
	APITimeout  time.Duration
	LogLevel    slog.Level
	Poll        PollConfig
}

// PollConfig holds the view poll intervals and the log tail size.
type PollConfig struct {
	Dashboard  time.Duration
	Logs       time.Duration
	CoreHealth time.Duration
	LogLimit   int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/console.db"),
		APIURL:      strings.TrimRight(getEnv("CIMEX_API_URL", "http://127.0.0.1:8000/api"), "/"),
		APITimeout:  getEnvDuration("API_TIMEOUT", 15*time.Second),
		LogLevel:    getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Poll: PollConfig{
			Dashboard:  getEnvDuration("DASHBOARD_POLL_INTERVAL", 5*time.Second),
			Logs:       getEnvDuration("LOGS_POLL_INTERVAL", 2*time.Second),
			CoreHealth: getEnvDuration("HEALTH_POLL_INTERVAL", 10*time.Second),
			LogLimit:   getEnvInt("LOG_LIMIT", 300),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CIMEX_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be > 0")
	}
	if c.Poll.Dashboard <= 0 || c.Poll.Logs <= 0 || c.Poll.CoreHealth <= 0 {
		return fmt.Errorf("poll intervals must be > 0")
	}
	if c.Poll.LogLimit <= 0 {
		return fmt.Errorf("LOG_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("2s") and bare seconds ("2").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
