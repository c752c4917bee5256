// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the polychat client.
//
// Configuration precedence, later entries win:
//   - Built-in defaults
//   - ~/.polychat/config.toml
//   - POLYCHAT_* environment variables
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete polychat client configuration.
type Config struct {
	Version string `toml:"version"`

	// Server is the backend API configuration.
	Server ServerConfig `toml:"server"`

	// UI holds terminal interface options.
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains backend API settings.
type ServerConfig struct {
	// BaseURL is the backend API root, e.g. "https://chat.example.com/api".
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries bounds transport retries for idempotent reads.
	MaxRetries int `toml:"max_retries"`
}

// UIConfig contains terminal interface settings.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light".
	Theme string `toml:"theme"`
	// MarkdownRendering toggles glamour rendering of assistant replies.
	MarkdownRendering bool `toml:"markdown_rendering"`
	// SidebarWidth is the conversation sidebar width in columns.
	SidebarWidth int `toml:"sidebar_width"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL:     "http://localhost:5000/api",
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		UI: UIConfig{
			Theme:             "dark",
			MarkdownRendering: true,
			SidebarWidth:      32,
		},
	}
}

// Timeout returns the server timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// =============================================================================
// LOADING
// =============================================================================

// DefaultPath returns the default config file path (~/.polychat/config.toml).
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".polychat", "config.toml"), nil
}

// Load reads configuration from the default path with env overrides.
// A missing file is not an error: defaults apply.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from an explicit path with env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies POLYCHAT_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYCHAT_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("POLYCHAT_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Server.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("POLYCHAT_THEME"); v != "" {
		cfg.UI.Theme = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url must not be empty")
	}
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	if c.Server.TimeoutSecs <= 0 {
		return errors.New("server.timeout_secs must be positive")
	}
	if c.Server.MaxRetries < 1 {
		return errors.New("server.max_retries must be at least 1")
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("ui.theme %q is not supported (dark, light)", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the given path in TOML format.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}
