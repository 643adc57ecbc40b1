// Package config loads viewer settings from a YAML file.
//
// Values not present in the file keep their defaults. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraitsura/tdv/pkg/client"
	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/watcher"
)

// Theme names accepted in the config file.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Config holds user settings.
type Config struct {
	Endpoint      string   `yaml:"endpoint"`
	Timeout       Duration `yaml:"timeout"`
	LockInfoWidth int      `yaml:"lock_info_width"`
	WatchDebounce Duration `yaml:"watch_debounce"`
	LogFile       string   `yaml:"log_file,omitempty"`
	Theme         string   `yaml:"theme"`
}

// Duration is a time.Duration written as "60s" or "250ms" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Endpoint:      client.DefaultEndpoint,
		Timeout:       Duration(client.DefaultTimeout),
		LockInfoWidth: format.DefaultLockInfoWidth,
		WatchDebounce: Duration(watcher.DefaultDebounceDuration),
		Theme:         ThemeDark,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/tdv/config.yaml, falling back to the
// platform config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "tdv", "config.yaml")
}

// Load reads the config at path over the defaults. A missing file is not an
// error when the path is the default one.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the viewer cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an http(s) URL with a host", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Std())
	}
	if c.LockInfoWidth <= 0 {
		return fmt.Errorf("lock_info_width must be positive, got %d", c.LockInfoWidth)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative")
	}
	switch c.Theme {
	case ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("unknown theme %q (want %s or %s)", c.Theme, ThemeDark, ThemeLight)
	}
	return nil
}
