package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
env: production
server:
  port: "9090"
redis:
  addr: "localhost:6379"
quiz:
  exclude_first: false
audio:
  feedback_volume: 0.5
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "production" || cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if *cfg.Quiz.ExcludeFirst {
		t.Fatalf("expected exclude_first=false from file")
	}
	if cfg.Audio.FeedbackVolume != 0.5 || cfg.Audio.PronunciationRate != 0.8 {
		t.Fatalf("expected audio defaults merged, got %+v", cfg.Audio)
	}
	if cfg.Server.RateLimitBurst != 10 {
		t.Fatalf("expected default burst, got %d", cfg.Server.RateLimitBurst)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "redis:\n  addr: \"file:6379\"\n")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("QUIZ_EXCLUDE_FIRST", "false")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "env:6379" {
		t.Fatalf("expected env override, got %q", cfg.Redis.Addr)
	}
	if *cfg.Quiz.ExcludeFirst {
		t.Fatalf("expected env to disable exclude_first")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if !*cfg.Quiz.ExcludeFirst || cfg.Env != "development" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
		t.Fatalf("expected error for required missing file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "env: staging\naudio:\n  feedback_volume: 3\n")

	_, err := Load(path, false)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "Env") || !strings.Contains(err.Error(), "FeedbackVolume") {
		t.Fatalf("expected both fields reported, got %v", err)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty: got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("invalid: got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("valid: got %v", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
