package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.HeaderOffset != 62 {
		t.Errorf("expected header offset 62, got %v", cfg.HeaderOffset)
	}
	if cfg.Counter.TTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", cfg.Counter.TTL)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docnav.yml")
	yml := `port: "9000"
content_dir: site/content
watch: false
exclude:
  - "drafts/**"
counter:
  repo: acme/handbook
  ttl: 30m
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DOCNAV_PORT", "9100")
	t.Setenv("DOCNAV_COUNTER__DB_PATH", "/tmp/stars.db")
	t.Setenv("DOCNAV_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("expected env port to win, got %q", cfg.Port)
	}
	if cfg.ContentDir != "site/content" {
		t.Errorf("content_dir: got %q", cfg.ContentDir)
	}
	if cfg.Watch {
		t.Error("expected watch=false from file")
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "drafts/**" {
		t.Errorf("exclude: got %v", cfg.Exclude)
	}
	if cfg.Counter.Repo != "acme/handbook" {
		t.Errorf("counter.repo: got %q", cfg.Counter.Repo)
	}
	if cfg.Counter.TTL != 30*time.Minute {
		t.Errorf("counter.ttl: got %v", cfg.Counter.TTL)
	}
	if cfg.Counter.Timeout != 10*time.Second {
		t.Errorf("expected default timeout kept, got %v", cfg.Counter.Timeout)
	}
	if cfg.Counter.DBPath != "/tmp/stars.db" {
		t.Errorf("counter.db_path: got %q", cfg.Counter.DBPath)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors_origins: got %v", cfg.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected default port, got %q", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = "http" }},
		{"port out of range", func(c *Config) { c.Port = "70000" }},
		{"no content dir", func(c *Config) { c.ContentDir = "" }},
		{"negative offset", func(c *Config) { c.HeaderOffset = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad repo", func(c *Config) { c.Counter.Repo = "acme" }},
		{"zero ttl", func(c *Config) { c.Counter.TTL = 0 }},
		{"zero timeout", func(c *Config) { c.Counter.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	lvl, err := cfg.SlogLevel()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lvl != slog.LevelDebug {
		t.Errorf("expected debug, got %v", lvl)
	}
}
