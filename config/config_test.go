package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Shortener.CodeLength != 7 {
		t.Errorf("expected default code length 7, got %d", cfg.Shortener.CodeLength)
	}
	if cfg.Shortener.BulkMaxURLs != 50 {
		t.Errorf("expected default bulk max 50, got %d", cfg.Shortener.BulkMaxURLs)
	}
	if cfg.Auth.TokenTTLMin != 60 {
		t.Errorf("expected default token ttl 60, got %d", cfg.Auth.TokenTTLMin)
	}

	if cfg.RateLimit.FailOpen {
		t.Error("expected rate limiter to fail closed by default")
	}
	if cfg.RateLimit.Default.Requests != 100 || cfg.RateLimit.Default.WindowSeconds != 60 {
		t.Errorf("unexpected default rate limit policy: %+v", cfg.RateLimit.Default)
	}
	if len(cfg.RateLimit.Policies) != 5 {
		t.Fatalf("expected 5 endpoint policies, got %d", len(cfg.RateLimit.Policies))
	}

	byEndpoint := make(map[string]RateLimitPolicy, len(cfg.RateLimit.Policies))
	for _, p := range cfg.RateLimit.Policies {
		byEndpoint[p.Endpoint] = p
	}
	if p := byEndpoint["/shorten/"]; p.Requests != 10 || p.WindowSeconds != 60 {
		t.Errorf("unexpected /shorten/ policy: %+v", p)
	}
	if p := byEndpoint["/auth/register"]; p.Requests != 2 || p.WindowSeconds != 600 {
		t.Errorf("unexpected /auth/register policy: %+v", p)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PORT", "5433")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("expected PG_HOST override, got %q", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 5433 {
		t.Errorf("expected PG_PORT override, got %d", cfg.Postgres.Port)
	}
	if cfg.Redis.Host != "cache.internal" {
		t.Errorf("expected REDIS_HOST override, got %q", cfg.Redis.Host)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("expected JWT_SECRET override, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected SERVER_PORT override, got %d", cfg.Server.Port)
	}
}
