// Package config holds seltzerd's file configuration and the process-wide
// runtime state shared by every session start.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all seltzerd configuration.
type Config struct {
	// ListenAddr is the TCP address the command socket binds to.
	ListenAddr string `yaml:"listen_addr"`

	// BaseDir is the filesystem root under which per-session profile
	// directories are created.
	BaseDir string `yaml:"base_dir"`

	Headless HeadlessConfig `yaml:"headless"`
	Session  SessionConfig  `yaml:"session"`
	Browser  BrowserConfig  `yaml:"browser"`
}

// HeadlessConfig configures the startup headless flag and its lock.
type HeadlessConfig struct {
	Enabled bool `yaml:"enabled"`

	// Locked defaults to true when headless is enabled: once the server is
	// up, nothing may flip the mode under running sessions.
	Locked *bool `yaml:"locked"`
}

// LockedOrDefault returns the lock setting, defaulting to locked.
func (c HeadlessConfig) LockedOrDefault() bool {
	if c.Locked == nil {
		return true
	}
	return *c.Locked
}

// SessionConfig configures session eviction.
type SessionConfig struct {
	NeverUsedTimeout string `yaml:"never_used_timeout"`
	InactiveTimeout  string `yaml:"inactive_timeout"`
	ReapInterval     string `yaml:"reap_interval"`
}

// NeverUsed returns how long a never-used session may live.
func (c SessionConfig) NeverUsed() time.Duration {
	return durationOr(c.NeverUsedTimeout, 10*time.Minute)
}

// Inactive returns how long a used session may sit idle.
func (c SessionConfig) Inactive() time.Duration {
	return durationOr(c.InactiveTimeout, time.Hour)
}

// Reap returns the sweep interval of the session reaper.
func (c SessionConfig) Reap() time.Duration {
	return durationOr(c.ReapInterval, time.Minute)
}

// BrowserConfig configures the Chromium driver.
type BrowserConfig struct {
	// Bin overrides the Chromium binary path; empty means auto-detect.
	Bin string `yaml:"bin"`

	NavigationTimeoutMs int `yaml:"navigation_timeout_ms"`
}

// NavigationTimeout returns the page navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddr: ":39948",
		BaseDir:    filepath.Join(os.TempDir(), "seltzer"),
	}
}

// Load reads YAML configuration from path. A missing file yields defaults;
// a present but unreadable or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":39948"
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Join(os.TempDir(), "seltzer")
	}
	return cfg, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
