// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// GenerationStepDelay is the pause between generated itinerary days.
	// Defaults to 2s. Set to "0s" to generate without pausing.
	GenerationStepDelay time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set or that
// cannot be parsed.
func Load() (Config, error) {
	var p parser
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes:        int64(p.int("MAX_BODY_BYTES", 1<<20)),
		GenerationStepDelay: p.duration("GENERATION_STEP_DELAY", 2*time.Second),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if err := p.err(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ClientConfig holds the settings of the tripmind CLI.
// Values are populated by LoadClient from environment variables.
type ClientConfig struct {
	// APIURL is the base URL of the TripMind API. Defaults to "http://localhost:8080".
	APIURL string

	// LogLevel controls the minimum log level. Defaults to "warn".
	LogLevel string

	// PollInterval is the pause between itinerary polls. Defaults to 1s.
	PollInterval time.Duration

	// PollMaxAttempts bounds itinerary polling. Defaults to 40.
	PollMaxAttempts int

	// NotesDebounce is the quiet period before a notes edit is saved. Defaults to 1s.
	NotesDebounce time.Duration

	// RateLimitPerMinute caps outgoing API requests. Defaults to 120.
	RateLimitPerMinute int

	// SessionID scopes the suggestion cache. Defaults to "default".
	SessionID string

	// SessionDatabaseURL, when set, keeps the suggestion cache in Postgres
	// instead of process memory.
	SessionDatabaseURL string

	// CacheMaxEntries bounds the in-memory suggestion cache. Defaults to 256.
	CacheMaxEntries int
}

// LoadClient reads the CLI configuration from environment variables.
// Nothing is required; malformed numbers and durations are reported together.
func LoadClient() (ClientConfig, error) {
	var p parser
	cfg := ClientConfig{
		APIURL:             strings.TrimRight(getEnv("TRIPMIND_API_URL", "http://localhost:8080"), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "warn"),
		PollInterval:       p.duration("POLL_INTERVAL", time.Second),
		PollMaxAttempts:    p.int("POLL_MAX_ATTEMPTS", 40),
		NotesDebounce:      p.duration("NOTES_DEBOUNCE", time.Second),
		RateLimitPerMinute: p.int("RATE_LIMIT_PER_MINUTE", 120),
		SessionID:          getEnv("SESSION_ID", "default"),
		SessionDatabaseURL: os.Getenv("SESSION_DATABASE_URL"),
		CacheMaxEntries:    p.int("CACHE_MAX_ENTRIES", 256),
	}
	if err := p.err(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// ParseLogLevel maps a LOG_LEVEL value onto a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser reads typed variables and remembers which ones were malformed.
type parser struct {
	invalid []string
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) err() error {
	if len(p.invalid) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
}
