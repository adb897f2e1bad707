package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	AppName    string        `toml:"app_name"`
	SocketPath string        `toml:"socket_path"`
	CacheDir   string        `toml:"cache_dir"`
	ConfigDir  string        `toml:"config_dir"`
	Display    string        `toml:"display"`
	Log        LogConfig     `toml:"log"`
	Apps       AppsConfig    `toml:"apps"`
	Launch     LaunchConfig  `toml:"launch"`
	Order      OrderConfig   `toml:"order"`
	Plugins    PluginsConfig `toml:"plugins"`
	Bus        BusConfig     `toml:"bus"`
	Window     WindowConfig  `toml:"window"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type AppsConfig struct {
	ScanStandardDirs bool     `toml:"scan_standard_dirs"`
	ScanPath         bool     `toml:"scan_path"`
	ExtraDirs        []string `toml:"extra_dirs"`
	Files            []string `toml:"files"`
	ShowHidden       bool     `toml:"show_hidden"`
	MaxResults       int      `toml:"max_results"`
	ParseCacheSize   int      `toml:"parse_cache_size"`
	Watch            bool     `toml:"watch"`
	WatchDebounce    int      `toml:"watch_debounce"` // milliseconds
}

type LaunchConfig struct {
	PollInterval      int `toml:"poll_interval"`       // milliseconds
	ReadyPollInterval int `toml:"ready_poll_interval"` // milliseconds, 0 disables polling once ready
	MaxPollAttempts   int `toml:"max_poll_attempts"`   // 0 = poll until the process exits
}

type OrderConfig struct {
	FavoritesFile   string `toml:"favorites_file"`
	PluginOrderFile string `toml:"plugin_order_file"`
	RecentsFile     string `toml:"recents_file"`
	MaxRecents      int    `toml:"max_recents"`
}

type PluginsConfig struct {
	Dirs []string `toml:"dirs"`
}

type BusConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Path    string `toml:"path"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

var DefaultConfig = Config{
	AppName:    "xdock",
	SocketPath: "/tmp/xdock_socket",
	CacheDir:   "~/.cache/xdock",
	ConfigDir:  "~/.config/xdock",
	Display:    "",
	Log: LogConfig{
		Level: "info",
		File:  "",
	},
	Apps: AppsConfig{
		ScanStandardDirs: true,
		ScanPath:         false,
		ExtraDirs:        []string{},
		Files:            []string{},
		ShowHidden:       false,
		MaxResults:       20,
		ParseCacheSize:   1024,
		Watch:            true,
		WatchDebounce:    500,
	},
	Launch: LaunchConfig{
		PollInterval:      100,
		ReadyPollInterval: 1000,
		MaxPollAttempts:   0,
	},
	Order: OrderConfig{
		FavoritesFile:   "~/.config/xdock/favorites",
		PluginOrderFile: "~/.config/xdock/plugins",
		RecentsFile:     "~/.cache/xdock/recents.json",
		MaxRecents:      10,
	},
	Plugins: PluginsConfig{
		Dirs: []string{"~/.local/share/xdock/plugins", "/usr/share/xdock/plugins"},
	},
	Bus: BusConfig{
		Enabled: true,
		Name:    "org.chess10kp.XDock",
		Path:    "/org/chess10kp/XDock",
	},
	Window: WindowConfig{
		Title:  "xdock",
		Width:  1024,
		Height: 768,
	},
}

// Default returns a copy of DefaultConfig with its slices detached.
func Default() *Config {
	cfg := DefaultConfig
	cfg.Apps.ExtraDirs = append([]string{}, DefaultConfig.Apps.ExtraDirs...)
	cfg.Apps.Files = append([]string{}, DefaultConfig.Apps.Files...)
	cfg.Plugins.Dirs = append([]string{}, DefaultConfig.Plugins.Dirs...)
	cfg.expandPaths()
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	expandedPath := ExpandPath(path)

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, err
	}

	// Keys missing from the file keep their defaults.
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", expandedPath, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.CacheDir = ExpandPath(c.CacheDir)
	c.ConfigDir = ExpandPath(c.ConfigDir)
	c.SocketPath = ExpandPath(c.SocketPath)
	c.Log.File = ExpandPath(c.Log.File)
	c.Order.FavoritesFile = ExpandPath(c.Order.FavoritesFile)
	c.Order.PluginOrderFile = ExpandPath(c.Order.PluginOrderFile)
	c.Order.RecentsFile = ExpandPath(c.Order.RecentsFile)
	for i, d := range c.Apps.ExtraDirs {
		c.Apps.ExtraDirs[i] = ExpandPath(d)
	}
	for i, f := range c.Apps.Files {
		c.Apps.Files[i] = ExpandPath(f)
	}
	for i, d := range c.Plugins.Dirs {
		c.Plugins.Dirs[i] = ExpandPath(d)
	}
}

func LoadAndValidateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ExpandPath expands a leading ~ to the current user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}

func SaveConfig(cfg *Config, path string) error {
	expandedPath := ExpandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(expandedPath, data, 0644)
}

// PollIntervalDuration returns the poll interval while waiting for a window.
func (c *LaunchConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// ReadyPollIntervalDuration returns the poll interval once windows are shown.
func (c *LaunchConfig) ReadyPollIntervalDuration() time.Duration {
	return time.Duration(c.ReadyPollInterval) * time.Millisecond
}

func (c *Config) Validate() error {
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateApps(); err != nil {
		return err
	}
	if err := c.validateLaunch(); err != nil {
		return err
	}
	if err := c.validateOrder(); err != nil {
		return err
	}
	if err := c.validateBus(); err != nil {
		return err
	}
	if err := c.validateWindow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLog() error {
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: trace, debug, info, warn, error)", c.Log.Level)
}

func (c *Config) validateApps() error {
	a := c.Apps
	if a.MaxResults < 1 || a.MaxResults > 1000 {
		return fmt.Errorf("invalid max_results: %d (must be 1-1000)", a.MaxResults)
	}
	if a.ParseCacheSize < 10 || a.ParseCacheSize > 100000 {
		return fmt.Errorf("invalid parse_cache_size: %d (must be 10-100000)", a.ParseCacheSize)
	}
	if a.WatchDebounce < 0 || a.WatchDebounce > 60000 {
		return fmt.Errorf("invalid watch_debounce: %d (must be 0-60000ms)", a.WatchDebounce)
	}
	return nil
}

func (c *Config) validateLaunch() error {
	l := c.Launch
	if l.PollInterval < 10 || l.PollInterval > 60000 {
		return fmt.Errorf("invalid poll_interval: %d (must be 10-60000ms)", l.PollInterval)
	}
	if l.ReadyPollInterval != 0 && (l.ReadyPollInterval < 10 || l.ReadyPollInterval > 600000) {
		return fmt.Errorf("invalid ready_poll_interval: %d (must be 0 or 10-600000ms)", l.ReadyPollInterval)
	}
	if l.MaxPollAttempts < 0 {
		return fmt.Errorf("invalid max_poll_attempts: %d (must be >= 0)", l.MaxPollAttempts)
	}
	return nil
}

func (c *Config) validateOrder() error {
	o := c.Order
	if o.FavoritesFile == "" {
		return fmt.Errorf("favorites_file must not be empty")
	}
	if o.PluginOrderFile == "" {
		return fmt.Errorf("plugin_order_file must not be empty")
	}
	if o.MaxRecents < 0 || o.MaxRecents > 100 {
		return fmt.Errorf("invalid max_recents: %d (must be 0-100)", o.MaxRecents)
	}
	return nil
}

func (c *Config) validateBus() error {
	if !c.Bus.Enabled {
		return nil
	}
	if c.Bus.Name == "" || c.Bus.Path == "" {
		return fmt.Errorf("bus enabled but name or path is empty")
	}
	if c.Bus.Path[0] != '/' {
		return fmt.Errorf("invalid bus path: %s (must start with /)", c.Bus.Path)
	}
	return nil
}

func (c *Config) validateWindow() error {
	w := c.Window
	if w.Width < 100 || w.Width > 8000 {
		return fmt.Errorf("invalid window width: %d (must be 100-8000)", w.Width)
	}
	if w.Height < 100 || w.Height > 8000 {
		return fmt.Errorf("invalid window height: %d (must be 100-8000)", w.Height)
	}
	return nil
}

func ValidateConfig(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
