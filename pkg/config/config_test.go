package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"**/*.sfs", "**/*.craft"}, cfg.Scan.Include)
	assert.Equal(t, ".kmlignore", cfg.Scan.IgnoreFile)
	assert.Equal(t, 5*time.Second, cfg.Query.Timeout)
	assert.True(t, cfg.Check.Validate)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"unknown level", func(c *Config) { c.Log.Level = "chatty" }, true},
		{"warning alias", func(c *Config) { c.Log.Level = "WARNING" }, false},
		{"no include patterns", func(c *Config) { c.Scan.Include = nil }, true},
		{"bad include pattern", func(c *Config) { c.Scan.Include = []string{"[a-"} }, true},
		{"zero timeout", func(c *Config) { c.Query.Timeout = 0 }, true},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, true},
		{"zero debounce", func(c *Config) { c.Watch.Debounce = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
query:
  timeout: 250ms
check:
  validate: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Query.Timeout)
	assert.False(t, cfg.Check.Validate)
	// Untouched keys keep their defaults.
	assert.Equal(t, ".kmlignore", cfg.Scan.IgnoreFile)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Scan.Include = []string{"saves/**/*.sfs"}
	cfg.Check.RepairOnly = true
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{
		Log:   LogConfig{Level: "error", NoColor: true},
		Query: QueryConfig{Timeout: time.Minute},
		Check: CheckConfig{RepairOnly: true},
	})

	assert.Equal(t, "error", cfg.Log.Level)
	assert.True(t, cfg.Log.NoColor)
	assert.Equal(t, time.Minute, cfg.Query.Timeout)
	assert.True(t, cfg.Check.RepairOnly)
	// Zero values leave the receiver alone.
	assert.True(t, cfg.Check.Validate)
	assert.Equal(t, []string{"**/*.sfs", "**/*.craft"}, cfg.Scan.Include)

	cfg.Merge(nil)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	work := filepath.Join(project, "saves", "default")
	require.NoError(t, os.MkdirAll(work, 0755))

	userPath := filepath.Join(home, UserConfigDir, UserConfigFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0755))
	require.NoError(t, os.WriteFile(userPath, []byte("log:\n  level: debug\nquery:\n  timeout: 2s\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte("query:\n  timeout: 3s\n"), 0644))

	l := NewLoader(slog.New(slog.DiscardHandler))
	l.home, l.dir = home, work

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "user layer")
	assert.Equal(t, 3*time.Second, cfg.Query.Timeout, "project layer wins over user layer")

	explicit := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("check:\n  repair_only: true\n"), 0644))
	cfg, err = l.Load(explicit)
	require.NoError(t, err)
	assert.True(t, cfg.Check.RepairOnly)
	assert.Equal(t, 3*time.Second, cfg.Query.Timeout)
}

func TestLoaderErrors(t *testing.T) {
	l := NewLoader(nil)
	l.home, l.dir = t.TempDir(), t.TempDir()

	_, err := l.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("query:\n  timeout: -1s\n"), 0644))
	_, err = l.Load(bad)
	assert.ErrorContains(t, err, "query.timeout")
}

func TestEnsureUserConfig(t *testing.T) {
	l := NewLoader(slog.New(slog.DiscardHandler))
	l.home = t.TempDir()

	path, err := l.EnsureUserConfig()
	require.NoError(t, err)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	again, err := l.EnsureUserConfig()
	require.NoError(t, err)
	assert.Equal(t, path, again)
}
