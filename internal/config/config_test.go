package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "PORT", "RECORD_TIMEOUT_MS", "JWT_TTL_HOURS"} {
		t.Setenv(key, "")
	}
	t.Setenv("BASE_URL", "https://lnk.example.com/")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "https://app.example.com")

	cfg, _ := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.BaseURL != "https://lnk.example.com" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.BaseURL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v, want frontend URL", cfg.CORSOrigins)
	}
	if cfg.RecordTimeout != 2*time.Second {
		t.Errorf("RecordTimeout = %v, want 2s", cfg.RecordTimeout)
	}
	if cfg.JWTTTL != 168 {
		t.Errorf("JWTTTL = %d, want 168", cfg.JWTTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("RECORD_TIMEOUT_MS", "150")
	t.Setenv("RATE_LIMIT_REDIRECT_RPS", "7.5")
	t.Setenv("DEFAULT_MAX_URLS", "not-a-number")

	cfg, _ := Load()

	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.RecordTimeout != 150*time.Millisecond {
		t.Errorf("RecordTimeout = %v", cfg.RecordTimeout)
	}
	if cfg.RateLimitRedirectRPS != 7.5 {
		t.Errorf("RateLimitRedirectRPS = %v", cfg.RateLimitRedirectRPS)
	}
	if cfg.DefaultMaxURLs != 50 {
		t.Errorf("DefaultMaxURLs = %d, invalid values should fall back to the default", cfg.DefaultMaxURLs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{DatabaseURL: "postgres://x", JWTSecret: "s", RecordTimeout: time.Second}, false},
		{"missing database", Config{JWTSecret: "s", RecordTimeout: time.Second}, true},
		{"missing secret", Config{DatabaseURL: "postgres://x", RecordTimeout: time.Second}, true},
		{"zero timeout", Config{DatabaseURL: "postgres://x", JWTSecret: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
