package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/memodesk/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("mode = %q, enabled = %v", cfg.Mode, cfg.AuthEnabled())
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigValidationFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Local.Driver = "redis" }},
		{"empty local path", func(c *Config) { c.Local.Path = "" }},
		{"bad api base", func(c *Config) { c.Remote.APIBase = "not a url" }},
		{"empty branch", func(c *Config) { c.Remote.Branch = "" }},
		{"negative retries", func(c *Config) { c.Remote.ReadRetries = -1 }},
		{"unknown scheme", func(c *Config) { c.Access.PasswordScheme = "md5" }},
		{"autosave too fast", func(c *Config) { c.Autosave.Interval = 10 * time.Millisecond }},
		{"port out of range", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"auth token missing", func(c *Config) { c.Auth.Mode = AuthModeToken }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	t.Setenv("MEMODESK_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
local:
  driver: sqlite
  path: ./memodesk.db
remote:
  timeout: 15s
  read_retries: 2
autosave:
  interval: 1m
auth:
  mode: token
  token: ${MEMODESK_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Local.Driver != "sqlite" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Remote.Timeout != 15*time.Second || cfg.Remote.ReadRetries != 2 {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Remote.APIBase != "https://api.github.com" || cfg.Remote.Branch != "main" {
		t.Errorf("defaults lost: %+v", cfg.Remote)
	}
	if cfg.Autosave.Interval != time.Minute {
		t.Errorf("autosave = %v", cfg.Autosave.Interval)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("env expansion: token = %q", cfg.Auth.Token)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
}
