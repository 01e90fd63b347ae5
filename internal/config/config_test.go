package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "EMAIL_DEBUG", "SES_FROM_EMAIL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.RateLimitRequests != 120 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("unexpected rate limit %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.EmailDebug {
		t.Error("EmailDebug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("EMAIL_DEBUG", "true")

	cfg := Load()
	if cfg.ServerPort != "9090" || cfg.DatabaseType != "postgres" {
		t.Errorf("unexpected server config %+v", cfg)
	}
	if cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("unexpected rate limit %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if !cfg.EmailDebug {
		t.Error("expected EmailDebug to be true")
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")
	t.Setenv("RATE_LIMIT_WINDOW", "-5s")

	if got := getEnvInt("RATE_LIMIT_REQUESTS", 7); got != 7 {
		t.Errorf("getEnvInt() = %d, want 7", got)
	}
	if got := getEnvDuration("RATE_LIMIT_WINDOW", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %s, want 1s", got)
	}
}
