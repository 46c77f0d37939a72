// Package config provides configuration management for edugit.
//
// The configuration is stored in TOML format and supports validation
// and default values for all fields.
package config

import (
	"fmt"
	"strings"
)

// Config is the top-level configuration struct for edugit.
// It contains all configuration sections as embedded structs.
type Config struct {
	Identity IdentityConfig `toml:"identity"`
	Repo     RepoConfig     `toml:"repo"`
	Remote   RemoteConfig   `toml:"remote"`
	Terminal TerminalConfig `toml:"terminal"`
}

// IdentityConfig is the commit identity stamped on every commit.
type IdentityConfig struct {
	// Name is the author/committer name.
	Name string `toml:"name"`

	// Email is the author/committer email.
	Email string `toml:"email"`
}

// RepoConfig contains repository behaviour settings.
type RepoConfig struct {
	// DefaultBranch is the branch `git init` creates (default: "main").
	DefaultBranch string `toml:"default_branch"`
}

// RemoteConfig contains loopback-remote behaviour settings.
type RemoteConfig struct {
	// DeleteBranchOnMerge removes the compare branch after a merge request
	// is merged.
	DeleteBranchOnMerge bool `toml:"delete_branch_on_merge"`
}

// TerminalConfig contains terminal presentation settings.
type TerminalConfig struct {
	// Prompt is the terminal prompt string.
	Prompt string `toml:"prompt"`

	// Color enables styled output.
	Color bool `toml:"color"`
}

// DefaultConfig returns a config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Identity: IdentityConfig{
			Name:  "Edu Git",
			Email: "edu@git.local",
		},
		Repo: RepoConfig{
			DefaultBranch: "main",
		},
		Remote: RemoteConfig{
			DeleteBranchOnMerge: false,
		},
		Terminal: TerminalConfig{
			Prompt: "$",
			Color:  true,
		},
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Identity.Name) == "" {
		return fmt.Errorf("identity.name must not be empty")
	}
	if !strings.Contains(c.Identity.Email, "@") {
		return fmt.Errorf("identity.email %q is not an email address", c.Identity.Email)
	}
	if strings.TrimSpace(c.Repo.DefaultBranch) == "" {
		return fmt.Errorf("repo.default_branch must not be empty")
	}
	if strings.ContainsAny(c.Repo.DefaultBranch, " \t\n~^:?*[\\") {
		return fmt.Errorf("repo.default_branch %q is not a valid branch name", c.Repo.DefaultBranch)
	}
	return nil
}
