package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/noor/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no roots", func(c *Config) { c.Library.Roots = nil }},
		{"blank root", func(c *Config) { c.Library.Roots = []string{""} }},
		{"no notes dir", func(c *Config) { c.Notes.BaseDir = "" }},
		{"bad port", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"bad hour", func(c *Config) { c.Scan.FirstRunHour = 24 }},
		{"short interval", func(c *Config) { c.Scan.Interval = time.Second }},
		{"no tesseract", func(c *Config) { c.OCR.Binary = "" }},
		{"token without secret", func(c *Config) { c.Auth.Mode = AuthModeToken }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestScanIntervalIgnoredWhenDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scan.Enabled = false
	cfg.Scan.Interval = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled scan should not need an interval: %v", err)
	}
}

func TestLoadConfigFileWithEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := `app:
  log_level: debug
  http:
    port: 9000
library:
  roots: ["${PICS}"]
notes:
  base_dir: /srv/noor
scan:
  enabled: true
  interval: 6h
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PICS", "/home/me/Pictures")
	t.Setenv("NOOR_HTTP_PORT", "9100")
	t.Setenv("NOOR_AUTH_MODE", "token")
	t.Setenv("NOOR_AUTH_TOKEN", "s3cret")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9100 {
		t.Errorf("port = %d, want env override", cfg.App.HTTP.Port)
	}
	if cfg.Library.Roots[0] != "/home/me/Pictures" {
		t.Errorf("roots = %v", cfg.Library.Roots)
	}
	if cfg.Scan.Interval != 6*time.Hour || cfg.Scan.FirstRunHour != 8 {
		t.Errorf("scan = %+v", cfg.Scan)
	}
	if !cfg.Auth.AuthEnabled() || cfg.Auth.Token != "s3cret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}
