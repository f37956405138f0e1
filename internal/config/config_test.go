package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Match.Threshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %v", cfg.Match.Threshold)
	}
	if cfg.Match.Metric != "euclidean" {
		t.Errorf("expected default metric euclidean, got %q", cfg.Match.Metric)
	}
	if cfg.Embedding.URL != "http://localhost:8000" {
		t.Errorf("unexpected default embedding URL: %q", cfg.Embedding.URL)
	}
	if cfg.Embedding.Timeout != 10*time.Second {
		t.Errorf("expected default embedding timeout 10s, got %v", cfg.Embedding.Timeout)
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Errorf("expected default ledger backend sqlite, got %q", cfg.Ledger.Backend)
	}
	if cfg.Gallery.Path != "known_faces" {
		t.Errorf("unexpected default gallery path: %q", cfg.Gallery.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.45")
	t.Setenv("MATCH_METRIC", "cosine")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("EMBEDDING_TIMEOUT_SECONDS", "3")
	t.Setenv("WEB_PORT", "9090")

	cfg := Load()

	if cfg.Match.Threshold != 0.45 {
		t.Errorf("expected threshold 0.45, got %v", cfg.Match.Threshold)
	}
	if cfg.Match.Metric != "cosine" {
		t.Errorf("expected metric cosine, got %q", cfg.Match.Metric)
	}
	if cfg.Ledger.Backend != "postgres" {
		t.Errorf("expected backend postgres, got %q", cfg.Ledger.Backend)
	}
	if cfg.Embedding.Timeout != 3*time.Second {
		t.Errorf("expected embedding timeout 3s, got %v", cfg.Embedding.Timeout)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "not-a-number")
	t.Setenv("WEB_PORT", "-5")

	cfg := Load()

	if cfg.Match.Threshold != 0.6 {
		t.Errorf("expected fallback threshold 0.6, got %v", cfg.Match.Threshold)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected fallback port 8080, got %d", cfg.Web.Port)
	}
}

func TestLocation_Default(t *testing.T) {
	cfg := LedgerConfig{}
	if cfg.Location() != time.Local {
		t.Error("expected local zone for empty timezone")
	}
}

func TestLocation_Named(t *testing.T) {
	cfg := LedgerConfig{Timezone: "Europe/Prague"}
	loc := cfg.Location()
	if loc.String() != "Europe/Prague" {
		t.Errorf("expected Europe/Prague, got %s", loc)
	}
}

func TestLocation_InvalidFallsBack(t *testing.T) {
	cfg := LedgerConfig{Timezone: "Not/AZone"}
	if cfg.Location() != time.Local {
		t.Error("expected local zone fallback for invalid timezone")
	}
}
