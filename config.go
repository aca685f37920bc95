package sessionkit

import (
	"errors"
	"log"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client tuning parameters. Instances are intended to be
// configured during initialization and then treated as immutable.
type Config struct {
	HTTP      HTTPConfig
	Refresh   RefreshConfig
	RateLimit RateLimitConfig
	CSRF      CSRFConfig
	Cookies   CookieConfig
	Storage   StorageConfig
	Events    EventsConfig
	Metrics   MetricsConfig
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig controls the underlying transport.
type HTTPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig drives the refresh gate's eligibility policy and backoff.
type RefreshConfig struct {
	// MaxRetries is the consecutive-failure budget. Reaching it clears the
	// session instead of retrying further.
	MaxRetries int
	// AttemptInterval is the minimum gap between refresh attempts.
	AttemptInterval time.Duration
	// InitialBackoff is the delay before the first retry; it doubles per
	// retry up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// ExpiryLeeway triggers a proactive refresh when the access token
	// expires within this window. Zero disables proactive refresh.
	ExpiryLeeway time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the client-side cooldown entered on HTTP 429.
type RateLimitConfig struct {
	DefaultCooldown time.Duration
	MaxCooldown     time.Duration
	// HonorRetryAfter uses the server's Retry-After header (capped at
	// MaxCooldown) instead of DefaultCooldown when present.
	HonorRetryAfter bool
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig names the bootstrap endpoint and the cookie/header pair.
type CSRFConfig struct {
	Path       string
	CookieName string
	HeaderName string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names the token cookies shared with the browser dashboard.
// MirrorTokens keeps the client's cookie jar in sync with the credential
// store so cookie-authenticated endpoints keep working cross-subdomain.
type CookieConfig struct {
	AccessName   string
	RefreshName  string
	MirrorTokens bool
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig tunes the credential store adapters.
type StorageConfig struct {
	RedisPrefix string
	RedisTTL    time.Duration
}

// EventsConfig controls the async session event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			BaseURL:   "https://api.vikareta.com",
			Timeout:   15 * time.Second,
			UserAgent: "sessionkit/1",
		},
		Refresh: RefreshConfig{
			MaxRetries:      3,
			AttemptInterval: 5 * time.Second,
			InitialBackoff:  time.Second,
			MaxBackoff:      30 * time.Second,
			ExpiryLeeway:    60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			DefaultCooldown: time.Minute,
			MaxCooldown:     5 * time.Minute,
			HonorRetryAfter: true,
		},
		CSRF: CSRFConfig{
			Path:       "/csrf-token",
			CookieName: "XSRF-TOKEN",
			HeaderName: "X-XSRF-TOKEN",
		},
		Cookies: CookieConfig{
			AccessName:   "vikareta_access_token",
			RefreshName:  "vikareta_refresh_token",
			MirrorTokens: true,
		},
		Storage: StorageConfig{
			RedisPrefix: "vk",
			RedisTTL:    7 * 24 * time.Hour,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate checks the configuration for values the client cannot operate
// with. It is called by [Builder.Build].
func (c *Config) Validate() error {
	u, err := url.Parse(c.HTTP.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("HTTP.BaseURL must be an absolute URL")
	}
	if c.Refresh.MaxRetries <= 0 {
		return errors.New("Refresh.MaxRetries must be positive")
	}
	if c.Refresh.InitialBackoff <= 0 || c.Refresh.MaxBackoff < c.Refresh.InitialBackoff {
		return errors.New("Refresh backoff bounds invalid")
	}
	if c.RateLimit.DefaultCooldown <= 0 || c.RateLimit.MaxCooldown < c.RateLimit.DefaultCooldown {
		return errors.New("RateLimit cooldown bounds invalid")
	}
	if c.CSRF.Path == "" || c.CSRF.CookieName == "" || c.CSRF.HeaderName == "" {
		return errors.New("CSRF configuration incomplete")
	}
	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" {
		return errors.New("Cookies token names required")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the explicit clone point keeps the
	// Builder contract stable if reference fields are added later.
	return cfg
}

/*
====================================
ENV CONFIG
====================================
*/

//nolint:gochecknoglobals // single .env load per process
var envOnce sync.Once

// ConfigFromEnv builds a Config from environment variables, loading a .env
// file once when present. Unset variables keep the production defaults.
//
//	VIKARETA_API_URL             base API URL
//	VIKARETA_HTTP_TIMEOUT        request timeout (duration)
//	VIKARETA_REFRESH_MAX_RETRIES consecutive refresh failure budget
//	VIKARETA_REFRESH_BACKOFF     initial retry backoff (duration)
//	VIKARETA_RATE_COOLDOWN       default 429 cooldown (duration)
func ConfigFromEnv() Config {
	envOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("sessionkit: could not load .env file: %v", err)
			}
		}
	})

	cfg := defaultConfig()
	if v := os.Getenv("VIKARETA_API_URL"); v != "" {
		cfg.HTTP.BaseURL = v
	}
	cfg.HTTP.Timeout = parseDurationOrDefault("VIKARETA_HTTP_TIMEOUT", cfg.HTTP.Timeout)
	cfg.Refresh.MaxRetries = parseIntOrDefault("VIKARETA_REFRESH_MAX_RETRIES", cfg.Refresh.MaxRetries)
	cfg.Refresh.InitialBackoff = parseDurationOrDefault("VIKARETA_REFRESH_BACKOFF", cfg.Refresh.InitialBackoff)
	cfg.RateLimit.DefaultCooldown = parseDurationOrDefault("VIKARETA_RATE_COOLDOWN", cfg.RateLimit.DefaultCooldown)
	return cfg
}

func parseDurationOrDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("sessionkit: invalid duration in %s, using default", key)
		return def
	}
	return d
}

func parseIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("sessionkit: invalid integer in %s, using default", key)
		return def
	}
	return n
}
