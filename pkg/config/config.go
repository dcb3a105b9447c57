// Package config holds kmlgraph's settings: logging, file discovery, query
// limits and checker output. Settings are read from YAML files layered over
// DefaultConfig.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config is the complete kmlgraph configuration.
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Scan  ScanConfig  `yaml:"scan"`
	Query QueryConfig `yaml:"query"`
	Check CheckConfig `yaml:"check"`
	Watch WatchConfig `yaml:"watch"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
	// NoColor disables ANSI colours in log output.
	NoColor bool `yaml:"no_color"`
}

// ScanConfig selects which files a directory argument expands to.
type ScanConfig struct {
	// Include lists doublestar patterns matched against slash-separated
	// paths relative to the scanned directory.
	Include []string `yaml:"include"`
	// IgnoreFile is a gitignore-style file read from the scanned directory.
	IgnoreFile string `yaml:"ignore_file"`
}

// QueryConfig limits query evaluation.
type QueryConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// CheckConfig shapes the output of the check command.
type CheckConfig struct {
	// RepairOnly restricts the report to dock parts flagged for repair.
	RepairOnly bool `yaml:"repair_only"`
	// Validate runs structural validation after building each vessel.
	Validate bool `yaml:"validate"`
}

// WatchConfig tunes the file watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before a reload.
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Scan: ScanConfig{
			Include:    []string{"**/*.sfs", "**/*.craft"},
			IgnoreFile: ".kmlignore",
		},
		Query: QueryConfig{
			Timeout: 5 * time.Second,
		},
		Check: CheckConfig{
			Validate: true,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if len(c.Scan.Include) == 0 {
		return fmt.Errorf("scan.include must list at least one pattern")
	}
	for _, p := range c.Scan.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("scan.include: invalid pattern %q", p)
		}
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive, got %s", c.Query.Timeout)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q, expected debug/info/warn/error", name)
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one.
// Non-zero values from other override values in c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.NoColor {
		c.Log.NoColor = true
	}

	// Scan
	if len(other.Scan.Include) > 0 {
		c.Scan.Include = other.Scan.Include
	}
	if other.Scan.IgnoreFile != "" {
		c.Scan.IgnoreFile = other.Scan.IgnoreFile
	}

	// Query
	if other.Query.Timeout > 0 {
		c.Query.Timeout = other.Query.Timeout
	}

	// Check
	// Check.Validate defaults to true, so a zero value cannot be told
	// apart from an explicit false; only files can switch it off.
	if other.Check.RepairOnly {
		c.Check.RepairOnly = true
	}

	// Watch
	if other.Watch.Debounce > 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
