package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.DevBypassEnabled {
		t.Fatal("dev bypass must be disabled by default")
	}
	if cfg.APIKeyHeader != "X-API-Key" {
		t.Fatalf("expected X-API-Key, got %q", cfg.APIKeyHeader)
	}
	if cfg.TopRole != "super_admin" {
		t.Fatalf("expected super_admin, got %q", cfg.TopRole)
	}
	if cfg.PGMaxOpenConns != 10 || cfg.PGMaxIdleConns != 2 {
		t.Fatalf("unexpected pool defaults: %d/%d", cfg.PGMaxOpenConns, cfg.PGMaxIdleConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RAGGATE_HTTP_ADDR", ":9999")
	t.Setenv("RAGGATE_DEV_BYPASS", "true")
	t.Setenv("RAGGATE_TOKEN_LEEWAY", "30s")
	t.Setenv("RAGGATE_RATE_BURST", "5")

	cfg := Load()
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected :9999, got %q", cfg.HTTPAddr)
	}
	if !cfg.DevBypassEnabled {
		t.Fatal("expected dev bypass enabled")
	}
	if cfg.TokenLeeway != 30*time.Second {
		t.Fatalf("expected 30s leeway, got %v", cfg.TokenLeeway)
	}
	if cfg.RateBurst != 5 {
		t.Fatalf("expected burst 5, got %d", cfg.RateBurst)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("RAGGATE_RATE_BURST", "not-a-number")
	t.Setenv("RAGGATE_TOKEN_LEEWAY", "soon")

	cfg := Load()
	if cfg.RateBurst != 20 {
		t.Fatalf("garbage int must fall back, got %d", cfg.RateBurst)
	}
	if cfg.TokenLeeway != 0 {
		t.Fatalf("garbage duration must fall back, got %v", cfg.TokenLeeway)
	}
}
