package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig.Launch, cfg.Launch)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
socket_path = "/tmp/test_socket"

[launch]
poll_interval = 250
max_poll_attempts = 40

[apps]
scan_path = true
extra_dirs = ["/opt/apps"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test_socket", cfg.SocketPath)
	assert.Equal(t, 250, cfg.Launch.PollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Launch.PollIntervalDuration())
	assert.Equal(t, 40, cfg.Launch.MaxPollAttempts)
	assert.Equal(t, DefaultConfig.Launch.ReadyPollInterval, cfg.Launch.ReadyPollInterval)
	assert.True(t, cfg.Apps.ScanPath)
	assert.True(t, cfg.Apps.ScanStandardDirs)
	assert.Equal(t, []string{"/opt/apps"}, cfg.Apps.ExtraDirs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigInvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[launch\npoll_interval = "), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"poll interval too small", func(c *Config) { c.Launch.PollInterval = 1 }, false},
		{"ready polling disabled", func(c *Config) { c.Launch.ReadyPollInterval = 0 }, true},
		{"negative attempts", func(c *Config) { c.Launch.MaxPollAttempts = -1 }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bus path relative", func(c *Config) { c.Bus.Path = "org/x" }, false},
		{"bus disabled ignores path", func(c *Config) { c.Bus.Enabled = false; c.Bus.Path = "" }, true},
		{"empty favorites", func(c *Config) { c.Order.FavoritesFile = "" }, false},
		{"tiny window", func(c *Config) { c.Window.Width = 10 }, false},
		{"max results zero", func(c *Config) { c.Apps.MaxResults = 0 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Launch.MaxPollAttempts = 7

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Launch.MaxPollAttempts)
	assert.NoError(t, ValidateConfig(path))
}

func TestDefaultDetachesSlices(t *testing.T) {
	cfg := Default()
	cfg.Plugins.Dirs[0] = "changed"

	assert.NotEqual(t, "changed", DefaultConfig.Plugins.Dirs[0])
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.NotContains(t, ExpandPath("~/x"), "~")
}
