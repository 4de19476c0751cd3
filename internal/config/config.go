// Package config provides configuration loading for mergeq.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the engine configuration.
type Config struct {
	// WorkingRoot is the directory holding one local working copy per
	// project, plus the per-connection SSH wrapper scripts.
	WorkingRoot string `koanf:"working_root"`

	Git         GitConfig          `koanf:"git"`
	Connections []ConnectionConfig `koanf:"connections"`
	Log         LogConfig          `koanf:"log"`
}

// GitConfig holds the identity used for commits the engine creates.
type GitConfig struct {
	Email    string `koanf:"email"`
	Username string `koanf:"username"`
}

// ConnectionConfig binds a connection name to an SSH private key. Queue
// items select a connection by name.
type ConnectionConfig struct {
	Name   string `koanf:"name"`
	SSHKey string `koanf:"ssh_key"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "console" or "json".
	Format string `koanf:"format"`
}

// NewDefaultConfig returns a config with usable defaults.
func NewDefaultConfig() *Config {
	return &Config{
		WorkingRoot: "/var/lib/mergeq/git",
		Git: GitConfig{
			Email:    "mergeq@localhost",
			Username: "mergeq",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file, then overrides with MERGEQ_*
// environment variables. An empty path skips the file and uses defaults plus
// the environment.
//
// Precedence (highest to lowest): environment, YAML file, defaults.
// Example mapping: MERGEQ_GIT_EMAIL -> git.email,
// MERGEQ_WORKING_ROOT -> working_root.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("MERGEQ_", ".", func(s string) string {
		trimmed := strings.ToLower(strings.TrimPrefix(s, "MERGEQ_"))
		// working_root stays flat; section_field becomes section.field.
		switch {
		case strings.HasPrefix(trimmed, "git_"):
			return "git." + strings.TrimPrefix(trimmed, "git_")
		case strings.HasPrefix(trimmed, "log_"):
			return "log." + strings.TrimPrefix(trimmed, "log_")
		}
		return trimmed
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.WorkingRoot == "" {
		return fmt.Errorf("working_root must be set")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json', got %q", c.Log.Format)
	}
	seen := make(map[string]bool)
	for _, conn := range c.Connections {
		if conn.Name == "" {
			return fmt.Errorf("connection with empty name")
		}
		if seen[conn.Name] {
			return fmt.Errorf("duplicate connection name %q", conn.Name)
		}
		seen[conn.Name] = true
	}
	return nil
}

// ConnectionKeys returns the connection name to SSH key mapping the merger
// consumes.
func (c *Config) ConnectionKeys() map[string]string {
	keys := make(map[string]string, len(c.Connections))
	for _, conn := range c.Connections {
		keys[conn.Name] = conn.SSHKey
	}
	return keys
}
