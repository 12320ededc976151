package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "BACKEND1_URL", "BACKEND2_URL", "SYNC_RELOAD_DELAY", "SESSION_TOKEN_KEY"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.Port != 8090 {
		t.Errorf("expected port 8090, got %d", cfg.Port)
	}
	if cfg.IngestionURL != "http://localhost:5000" || cfg.QueryURL != "http://localhost:8080" {
		t.Errorf("unexpected backend urls %s %s", cfg.IngestionURL, cfg.QueryURL)
	}
	if cfg.SyncReloadDelay != 2*time.Second {
		t.Errorf("expected 2s reload delay, got %v", cfg.SyncReloadDelay)
	}
	if cfg.SessionTokenKey != "jwt_token" {
		t.Errorf("expected jwt_token, got %q", cfg.SessionTokenKey)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SYNC_RELOAD_DELAY", "500ms")
	t.Setenv("MAX_CONCURRENCY", "not-a-number")

	cfg := config.Load()

	if cfg.Port != 9000 {
		t.Errorf("expected 9000, got %d", cfg.Port)
	}
	if cfg.SyncReloadDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", cfg.SyncReloadDelay)
	}
	if cfg.MaxConcurrency != 8 {
		t.Errorf("invalid value should fall back to default, got %d", cfg.MaxConcurrency)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "BACKEND1_URL=http://from-file:5000\n# comment\nSERVICE_NAME=\"from-file\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVICE_NAME", "from-env")
	t.Setenv("BACKEND1_URL", "")
	os.Unsetenv("BACKEND1_URL")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := os.Getenv("BACKEND1_URL"); got != "http://from-file:5000" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("SERVICE_NAME"); got != "from-env" {
		t.Errorf("environment must win, got %q", got)
	}
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing file to be skipped, got %v", err)
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	if got := config.Load().CORSOrigins; len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Errorf("expected the local frontend origin by default, got %v", got)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example,")
	if got := config.Load().CORSOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("expected two trimmed origins, got %v", got)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "-")
	if got := config.Load().CORSOrigins; len(got) != 0 {
		t.Errorf("expected CORS disabled, got %v", got)
	}
}
