package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Query     QueryConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// CacheConfig controls the reconciled result cache.
type CacheConfig struct {
	// TTL is how long a result set stays fresh.
	TTL time.Duration // default: 5m

	// MaxEntries is the maximum number of cached result sets.
	MaxEntries int // default: 1000
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxConcurrency is the number of harvests allowed to hold a browser
	// context at the same time.
	MaxConcurrency int // default: 4

	// Proxy is an optional upstream proxy for the browser process.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	UserAgent      string
	AcceptLanguage string // default: "en-US,en;q=0.9"
	ViewportWidth  int    // default: 1366
	ViewportHeight int    // default: 900

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// ScraperConfig controls how vendor pages are driven.
type ScraperConfig struct {
	// NavigationTimeout bounds a single page.Navigate.
	NavigationTimeout time.Duration // default: 45s

	// ClickTimeout bounds a single consent/tab/load-more click.
	ClickTimeout time.Duration // default: 1.2s

	// SnapshotTimeout bounds the final HTML capture.
	SnapshotTimeout time.Duration // default: 10s

	// HarvestTimeout is the aggregate watchdog for one vendor harvest.
	HarvestTimeout time.Duration // default: 150s

	// MaxPages is the hard ceiling for paginated vendors.
	MaxPages int // default: 80

	// ScrollPasses and LoadMoreAttempts override the per-vendor profile
	// when positive.
	ScrollPasses     int
	LoadMoreAttempts int
}

// QueryConfig controls query normalization.
type QueryConfig struct {
	// TargetAliasesFile is an optional YAML/JSON/TOML file with an
	// "aliases" table of shorthand → catalog phrase.
	TargetAliasesFile string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is sent by every browser session unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("FLOWSCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("FLOWSCOUT_PORT", 8080),
			Mode: envOr("FLOWSCOUT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("FLOWSCOUT_HEADLESS", true),
			MaxConcurrency: envIntOr("FLOWSCOUT_MAX_CONCURRENCY", 4),
			Proxy:          os.Getenv("FLOWSCOUT_PROXY"),
			NoSandbox:      envBoolOr("FLOWSCOUT_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("FLOWSCOUT_BROWSER_BIN"),
			UserAgent:      envOr("FLOWSCOUT_USER_AGENT", DefaultUserAgent),
			AcceptLanguage: envOr("FLOWSCOUT_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			ViewportWidth:  envIntOr("FLOWSCOUT_VIEWPORT_WIDTH", 1366),
			ViewportHeight: envIntOr("FLOWSCOUT_VIEWPORT_HEIGHT", 900),
			BlockedResourceTypes: envSliceOr("FLOWSCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("FLOWSCOUT_NAV_TIMEOUT", 45*time.Second),
			ClickTimeout:      envDurationOr("FLOWSCOUT_CLICK_TIMEOUT", 1200*time.Millisecond),
			SnapshotTimeout:   envDurationOr("FLOWSCOUT_SNAPSHOT_TIMEOUT", 10*time.Second),
			HarvestTimeout:    envDurationOr("FLOWSCOUT_HARVEST_TIMEOUT", 150*time.Second),
			MaxPages:          envIntOr("FLOWSCOUT_MAX_PAGES", 80),
			ScrollPasses:      envIntOr("FLOWSCOUT_SCROLL_PASSES", 0),
			LoadMoreAttempts:  envIntOr("FLOWSCOUT_LOAD_MORE_ATTEMPTS", 0),
		},
		Query: QueryConfig{
			TargetAliasesFile: os.Getenv("FLOWSCOUT_TARGET_ALIASES"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("FLOWSCOUT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("FLOWSCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("FLOWSCOUT_RATE_RPS", 2.0),
			Burst:             envIntOr("FLOWSCOUT_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("FLOWSCOUT_CACHE_TTL", 5*time.Minute),
			MaxEntries: envIntOr("FLOWSCOUT_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("FLOWSCOUT_LOG_LEVEL", "info"),
			Format: envOr("FLOWSCOUT_LOG_FORMAT", "json"),
		},
	}
}

// LoadTargetAliases reads the "aliases" table from a YAML, JSON or TOML
// file. An empty path yields no aliases. Keys are lower-cased by viper.
func LoadTargetAliases(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading target aliases %s: %w", path, err)
	}

	aliases := v.GetStringMapString("aliases")
	if len(aliases) == 0 {
		return nil, fmt.Errorf("target aliases %s: no \"aliases\" table", path)
	}
	return aliases, nil
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
