package sessionkit

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got %v", err)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.HTTP.BaseURL = "/api" }},
		{"zero retries", func(c *Config) { c.Refresh.MaxRetries = 0 }},
		{"inverted backoff", func(c *Config) { c.Refresh.MaxBackoff = c.Refresh.InitialBackoff / 2 }},
		{"inverted cooldown", func(c *Config) { c.RateLimit.MaxCooldown = time.Millisecond }},
		{"missing csrf header", func(c *Config) { c.CSRF.HeaderName = "" }},
		{"missing cookie names", func(c *Config) { c.Cookies.AccessName = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("VIKARETA_API_URL", "https://staging.api.vikareta.com")
	t.Setenv("VIKARETA_HTTP_TIMEOUT", "3s")
	t.Setenv("VIKARETA_REFRESH_MAX_RETRIES", "5")
	t.Setenv("VIKARETA_REFRESH_BACKOFF", "250ms")
	t.Setenv("VIKARETA_RATE_COOLDOWN", "30s")

	cfg := ConfigFromEnv()
	if cfg.HTTP.BaseURL != "https://staging.api.vikareta.com" {
		t.Fatalf("base url %q", cfg.HTTP.BaseURL)
	}
	if cfg.HTTP.Timeout != 3*time.Second {
		t.Fatalf("timeout %v", cfg.HTTP.Timeout)
	}
	if cfg.Refresh.MaxRetries != 5 {
		t.Fatalf("max retries %d", cfg.Refresh.MaxRetries)
	}
	if cfg.Refresh.InitialBackoff != 250*time.Millisecond {
		t.Fatalf("backoff %v", cfg.Refresh.InitialBackoff)
	}
	if cfg.RateLimit.DefaultCooldown != 30*time.Second {
		t.Fatalf("cooldown %v", cfg.RateLimit.DefaultCooldown)
	}
}

func TestConfigFromEnvKeepsDefaultsOnBadValues(t *testing.T) {
	t.Setenv("VIKARETA_HTTP_TIMEOUT", "not-a-duration")
	t.Setenv("VIKARETA_REFRESH_MAX_RETRIES", "many")

	def := DefaultConfig()
	cfg := ConfigFromEnv()
	if cfg.HTTP.Timeout != def.HTTP.Timeout {
		t.Fatalf("timeout %v, want default %v", cfg.HTTP.Timeout, def.HTTP.Timeout)
	}
	if cfg.Refresh.MaxRetries != def.Refresh.MaxRetries {
		t.Fatalf("max retries %d, want default %d", cfg.Refresh.MaxRetries, def.Refresh.MaxRetries)
	}
}
