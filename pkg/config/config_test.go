package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/capgen/capgen/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
font_path = "/usr/share/fonts/test.ttf"
separator = true
separator_color = "200,0,0"
format = "jpg"
budget = 500000

[redis]
addr = "localhost:6379"
db = 2

[serve]
addr = ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FontPath != "/usr/share/fonts/test.ttf" {
		t.Errorf("FontPath = %q", cfg.FontPath)
	}
	if !cfg.Separator || cfg.SeparatorColor != "200,0,0" {
		t.Errorf("separator settings not loaded: %+v", cfg)
	}
	if cfg.Budget != 500000 {
		t.Errorf("Budget = %d", cfg.Budget)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("redis settings not loaded: %+v", cfg.Redis)
	}
	if cfg.Serve.Addr != ":9090" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}

func TestLoadMissingDefaultIsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("missing default config should load as zero value, got %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode errors.Code
	}{
		{"bad color", `top_font_color = "red"`, errors.ErrCodeInvalidColor},
		{"negative budget", `budget = -1`, errors.ErrCodeInvalidBudget},
		{"bad format", `format = "webp"`, errors.ErrCodeInvalidFormat},
		{"bad toml", `format = [`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("code = %q, want %q", errors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if dir != filepath.Join("/tmp/custom-config", appName) {
		t.Errorf("Dir() = %q", dir)
	}
}
