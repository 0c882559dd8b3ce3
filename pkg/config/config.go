// Package config handles loading and saving netinv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/netinv/config.yaml
//   - Data:    ~/.local/share/netinv/ (default inventory)
//   - State:   ~/.local/state/netinv/ (REPL history)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "netinv"

// Workspace is a named workspace file registered in the config.
type Workspace struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// HistoryConfig controls the undo history.
type HistoryConfig struct {
	Limit int `yaml:"limit"` // Max undo entries, 0 = default (200)
}

// ClipboardConfig controls copy/paste.
type ClipboardConfig struct {
	Format string `yaml:"format,omitempty"` // yaml or json
	System bool   `yaml:"system"`           // Also use the OS clipboard
}

// WatchConfig controls reloading on external changes.
type WatchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Debounce  time.Duration `yaml:"debounce,omitempty"`
	ForcePoll bool          `yaml:"force_poll,omitempty"`
}

// UIConfig holds output preferences.
type UIConfig struct {
	Color string `yaml:"color,omitempty"` // auto, always, never
	Width int    `yaml:"width,omitempty"` // 0 = terminal width
}

// Config is the top-level configuration for ni.
type Config struct {
	Inventory  string          `yaml:"inventory,omitempty"`
	History    HistoryConfig   `yaml:"history"`
	Clipboard  ClipboardConfig `yaml:"clipboard"`
	Watch      WatchConfig     `yaml:"watch"`
	UI         UIConfig        `yaml:"ui,omitempty"`
	Workspaces []Workspace     `yaml:"workspaces,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		History:   HistoryConfig{Limit: 200},
		Clipboard: ClipboardConfig{Format: "yaml", System: true},
		Watch:     WatchConfig{Enabled: true, Debounce: 200 * time.Millisecond},
		UI:        UIConfig{Color: "auto"},
	}
}

// Validate rejects values the rest of the program cannot honor.
func (c Config) Validate() error {
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative, got %d", c.History.Limit)
	}
	switch strings.ToLower(c.Clipboard.Format) {
	case "", "yaml", "yml", "json":
	default:
		return fmt.Errorf("clipboard.format must be yaml or json, got %q", c.Clipboard.Format)
	}
	switch c.UI.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("ui.color must be auto, always or never, got %q", c.UI.Color)
	}
	if c.UI.Width < 0 {
		return fmt.Errorf("ui.width must not be negative, got %d", c.UI.Width)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigDir returns the XDG config directory for netinv.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for netinv.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for netinv.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// HistoryFile returns where the REPL keeps its line history.
func HistoryFile() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// InventoryPath returns the configured inventory, or inventory.yaml in the
// data directory.
func (c Config) InventoryPath() string {
	if c.Inventory != "" {
		return expandHome(c.Inventory)
	}
	dir := DataDir()
	if dir == "" {
		return "inventory.yaml"
	}
	return filepath.Join(dir, "inventory.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.Inventory = expandHome(cfg.Inventory)
	for i := range cfg.Workspaces {
		cfg.Workspaces[i].Path = expandHome(cfg.Workspaces[i].Path)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// FindWorkspace returns the workspace with the given name, or nil.
func (c Config) FindWorkspace(name string) *Workspace {
	for i := range c.Workspaces {
		if strings.EqualFold(c.Workspaces[i].Name, name) {
			return &c.Workspaces[i]
		}
	}
	return nil
}

// ResolvedPath returns the workspace path with ~ expanded.
func (w Workspace) ResolvedPath() string {
	return expandHome(w.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
