package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LockInfoWidth != 45 || cfg.Timeout.Std() != 60*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "endpoint: http://analyzer:9090\ntimeout: 5s\nlock_info_width: 30\ntheme: light\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "http://analyzer:9090" {
		t.Errorf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Timeout.Std() != 5*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout.Std())
	}
	if cfg.LockInfoWidth != 30 || cfg.Theme != ThemeLight {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.WatchDebounce.Std() != 250*time.Millisecond {
		t.Errorf("unset field should keep default, got %s", cfg.WatchDebounce.Std())
	}
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "endpoint: [", "parse config"},
		{"bad duration", "timeout: soon\n", "duration"},
		{"bad endpoint", "endpoint: localhost\n", "endpoint"},
		{"zero width", "lock_info_width: 0\n", "lock_info_width"},
		{"unknown theme", "theme: neon\n", "theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			os.WriteFile(path, []byte(tt.content), 0644)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.LockInfoWidth = 60
	cfg.LogFile = "/tmp/tdv.log"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestDefaultPath_UsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if got := DefaultPath(); got != filepath.Join(dir, "tdv", "config.yaml") {
		t.Errorf("DefaultPath = %q", got)
	}
}
