package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		UpstreamBaseURL:    "http://localhost:3000/api",
		UpstreamTimeout:    10 * time.Second,
		SessionCookieName:  "hr_session",
		SessionTTL:         time.Hour,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		ListStateCacheSize: 16,
		Timezone:           "UTC",
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BASE_PATH", "")
	t.Setenv("UPSTREAM_API_URL", "http://localhost:3000/api/")
	cfg := Load()
	if cfg.BasePath != "/managerHR" {
		t.Fatalf("expected default base path, got %q", cfg.BasePath)
	}
	if cfg.UpstreamBaseURL != "http://localhost:3000/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.UpstreamBaseURL)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Fatalf("expected 10s upstream timeout, got %s", cfg.UpstreamTimeout)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := map[string]string{
		"managerHR":   "/managerHR",
		"/managerHR/": "/managerHR",
		"/":           "",
		"  /hr  ":     "/hr",
	}
	for input, want := range tests {
		if got := normalizeBasePath(input); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "missing upstream", mutate: func(c *Config) { c.UpstreamBaseURL = "" }, wantErr: "UPSTREAM_API_URL is required"},
		{name: "relative upstream", mutate: func(c *Config) { c.UpstreamBaseURL = "/api" }, wantErr: "absolute URL"},
		{name: "production secret", mutate: func(c *Config) { c.Environment = "production"; c.DatabaseURL = "postgres://x" }, wantErr: "SESSION_SECRET"},
		{name: "production database", mutate: func(c *Config) {
			c.Environment = "production"
			c.SessionSecret = strings.Repeat("s", 32)
		}, wantErr: "DATABASE_URL"},
		{name: "bad zone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: "MAX_BODY_BYTES"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
