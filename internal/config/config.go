// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config is the root configuration structure.
type Config struct {
	// Languages restricts the grammars loaded at startup. Empty loads all.
	Languages  []string         `toml:"languages"`
	Validation ValidationConfig `toml:"validation"`
	Suggest    SuggestConfig    `toml:"suggest"`
	Journal    JournalConfig    `toml:"journal"`
	Log        LogConfig        `toml:"log"`
	Workspace  WorkspaceConfig  `toml:"workspace"`
}

// ValidationConfig bounds pre-flight validation.
type ValidationConfig struct {
	ConcurrentLimit int `toml:"concurrent_limit"`
	TimeoutMS       int `toml:"timeout_ms"`
}

// ConcurrentLimitOrDefault returns the configured limit or 20 if unset.
func (v ValidationConfig) ConcurrentLimitOrDefault() int {
	if v.ConcurrentLimit <= 0 {
		return 20
	}
	return v.ConcurrentLimit
}

// TimeoutOrDefault returns the per-request timeout, 5s if unset.
func (v ValidationConfig) TimeoutOrDefault() time.Duration {
	if v.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(v.TimeoutMS) * time.Millisecond
}

// SuggestConfig tunes near-miss suggestions.
type SuggestConfig struct {
	Threshold float64 `toml:"threshold"`
	Limit     int     `toml:"limit"`
}

// ThresholdOrDefault returns the configured threshold or 0.4 if unset.
func (s SuggestConfig) ThresholdOrDefault() float64 {
	if s.Threshold <= 0 {
		return 0.4
	}
	return s.Threshold
}

// LimitOrDefault returns the configured limit or 3 if unset.
func (s SuggestConfig) LimitOrDefault() int {
	if s.Limit <= 0 {
		return 3
	}
	return s.Limit
}

// JournalConfig controls the record of committed files.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// PathOrDefault returns the configured path or journal.db in the data directory.
func (j JournalConfig) PathOrDefault() (string, error) {
	if j.Path != "" {
		return j.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LevelOrDefault returns the parsed level, warn if unset or invalid.
func (l LogConfig) LevelOrDefault() zerolog.Level {
	lvl, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		return zerolog.WarnLevel
	}
	return lvl
}

// WorkspaceConfig confines file access.
type WorkspaceConfig struct {
	Root string `toml:"root"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{}
}

// Load reads configuration from a TOML file and applies environment variable
// overrides. An empty path loads DefaultPath if it exists and defaults
// otherwise; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.Validation.ConcurrentLimit < 0 {
		errs = append(errs, fmt.Errorf("validation.concurrent_limit=%d must not be negative", c.Validation.ConcurrentLimit))
	}
	if c.Validation.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("validation.timeout_ms=%d must not be negative", c.Validation.TimeoutMS))
	}
	if c.Suggest.Threshold < 0 || c.Suggest.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("suggest.threshold=%v must be in [0, 1)", c.Suggest.Threshold))
	}
	if c.Suggest.Limit < 0 {
		errs = append(errs, fmt.Errorf("suggest.limit=%d must not be negative", c.Suggest.Limit))
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level=%q is invalid: %v", c.Log.Level, err))
		}
	}
	seen := make(map[string]bool)
	for _, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			errs = append(errs, errors.New("languages: empty language id"))
			continue
		}
		if seen[lang] {
			errs = append(errs, fmt.Errorf("languages: %q listed twice", lang))
		}
		seen[lang] = true
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"DIFFER_LOG_LEVEL", func(v string) {
			if v != "" {
				cfg.Log.Level = v
			}
		}},
		{"DIFFER_ROOT", func(v string) {
			if v != "" {
				cfg.Workspace.Root = v
			}
		}},
		{"DIFFER_JOURNAL", func(v string) {
			switch strings.ToLower(v) {
			case "":
			case "off", "0", "false":
				cfg.Journal.Enabled = false
			case "on", "1", "true":
				cfg.Journal.Enabled = true
			default:
				cfg.Journal.Enabled = true
				cfg.Journal.Path = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

// DataDir returns the path to the differ data directory (~/.config/differ).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "differ"), nil
}

// DefaultPath returns the config file looked up when none is given.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
