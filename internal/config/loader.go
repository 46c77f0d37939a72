// Package config provides configuration management for edugit.
//
// This file contains config loading functionality including:
// - XDG config path detection
// - TOML file parsing
// - Environment variable overrides
// - Validation
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DetectConfigPath searches for a config file using XDG standard paths.
// Returns the first config file found, or empty string if none exists.
//
// Search order:
// 1. ~/.config/edugit/config.toml
//
// Returns empty string if no config file is found (caller should use defaults).
func DetectConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	configPath := filepath.Join(homeDir, ".config", "edugit", "config.toml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	return ""
}

// Load loads a config from the specified path.
// If the file doesn't exist, returns an error.
// After loading, applies environment variable overrides and validates.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults attempts to load a config from XDG standard paths.
// If no config file is found, returns a config with all default values.
// If a config file is found but fails to load/validate, returns an error.
func LoadWithDefaults() (*Config, error) {
	path := DetectConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// applyEnvOverrides applies EDUGIT_* environment variables on top of the
// loaded config.
//
// Supported variables:
//   - EDUGIT_IDENTITY_NAME
//   - EDUGIT_IDENTITY_EMAIL
//   - EDUGIT_DEFAULT_BRANCH
//   - EDUGIT_DELETE_BRANCH_ON_MERGE ("1"/"true")
//   - EDUGIT_PROMPT
//   - EDUGIT_NO_COLOR (any value disables color)
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EDUGIT_IDENTITY_NAME"); v != "" {
		cfg.Identity.Name = v
	}
	if v := os.Getenv("EDUGIT_IDENTITY_EMAIL"); v != "" {
		cfg.Identity.Email = v
	}
	if v := os.Getenv("EDUGIT_DEFAULT_BRANCH"); v != "" {
		cfg.Repo.DefaultBranch = v
	}
	if v := os.Getenv("EDUGIT_DELETE_BRANCH_ON_MERGE"); v != "" {
		cfg.Remote.DeleteBranchOnMerge = v == "1" || v == "true"
	}
	if v := os.Getenv("EDUGIT_PROMPT"); v != "" {
		cfg.Terminal.Prompt = v
	}
	if v := os.Getenv("EDUGIT_NO_COLOR"); v != "" {
		cfg.Terminal.Color = false
	}
}
