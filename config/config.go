package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8000
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig holds launch settings shared by every session, whichever
// backend opens it.
type BrowserConfig struct {
	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL passed to every launched browser.
	DefaultProxy string

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool // default: false

	// UserAgent overrides the browser's user agent when set.
	UserAgent string

	// BlockedResourceTypes lists resource types the rod backend refuses to load.
	// Ignored for network-idle waits. default: none
	BlockedResourceTypes []string
}

// ScraperConfig controls the fetch pipeline.
type ScraperConfig struct {
	// LaunchTimeout bounds how long opening a browser session may take.
	LaunchTimeout time.Duration // default: 30s

	// PollInterval is the selector/text polling period.
	PollInterval time.Duration // default: 250ms

	// QuietWindow is how long the network must stay silent for network-idle.
	QuietWindow time.Duration // default: 500ms

	// MaxSessions bounds concurrent browser sessions. 0 means unbounded.
	MaxSessions int // default: 0
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PARSCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("PARSCRAPE_PORT", 8000),
			Mode: envOr("PARSCRAPE_MODE", "release"),
		},
		Browser: BrowserConfig{
			NoSandbox:            envBoolOr("PARSCRAPE_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("PARSCRAPE_BROWSER_BIN"),
			DefaultProxy:         os.Getenv("PARSCRAPE_PROXY"),
			Stealth:              envBoolOr("PARSCRAPE_STEALTH", false),
			UserAgent:            os.Getenv("PARSCRAPE_USER_AGENT"),
			BlockedResourceTypes: envSliceOr("PARSCRAPE_BLOCKED_RESOURCES", nil),
		},
		Scraper: ScraperConfig{
			LaunchTimeout: envDurationOr("PARSCRAPE_LAUNCH_TIMEOUT", 30*time.Second),
			PollInterval:  envDurationOr("PARSCRAPE_POLL_INTERVAL", 250*time.Millisecond),
			QuietWindow:   envDurationOr("PARSCRAPE_QUIET_WINDOW", 500*time.Millisecond),
			MaxSessions:   envIntOr("PARSCRAPE_MAX_SESSIONS", 0),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PARSCRAPE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PARSCRAPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PARSCRAPE_RATE_RPS", 5.0),
			Burst:             envIntOr("PARSCRAPE_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PARSCRAPE_LOG_LEVEL", "info"),
			Format: envOr("PARSCRAPE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
