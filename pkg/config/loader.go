package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "kmlgraph.yaml"
	// UserConfigDir is the directory for user-level config, relative to $HOME.
	UserConfigDir = ".config/kmlgraph"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger

	// home and dir override the user home and working directory; empty
	// means the process values.
	home string
	dir  string
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
//  1. Default config
//  2. User config (~/.config/kmlgraph/config.yaml)
//  3. Project config (kmlgraph.yaml in current or parent directories)
//  4. explicit, when non-empty; it must exist
//
// Each layer is decoded over the previous one, so a file only changes the
// keys it names.
func (l *Loader) Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	if path := l.userConfigPath(); path != "" {
		switch err := decodeInto(cfg, path); {
		case err == nil:
			l.logger.Debug("Loaded user config", slog.String("path", path))
		case !os.IsNotExist(err):
			l.logger.Warn("Failed to load user config", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	if path := l.findProjectConfig(); path != "" {
		if err := decodeInto(cfg, path); err != nil {
			l.logger.Warn("Failed to load project config", slog.String("path", path), slog.String("error", err.Error()))
		} else {
			l.logger.Debug("Loaded project config", slog.String("path", path))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if explicit != "" {
		if err := decodeInto(cfg, explicit); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", explicit, err)
		}
		l.logger.Debug("Loaded config", slog.String("path", explicit))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't
// exist, and returns its path.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.userConfigPath()
	if path == "" {
		return "", fmt.Errorf("cannot determine home directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", path))
	return path, nil
}

func decodeInto(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// userConfigPath returns the path to the user config file.
func (l *Loader) userConfigPath() string {
	home := l.home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for kmlgraph.yaml in current and parent directories.
func (l *Loader) findProjectConfig() string {
	dir := l.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}
