// Package workspace combines several inventory files into one tree. A
// workspace is described by a workspace.yaml that lists inventories and,
// optionally, patterns for discovering more of them below the workspace root.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigDirName is the directory that holds workspace.yaml inside a workspace root.
const ConfigDirName = ".netinv"

// ConfigFileName is the workspace file name.
const ConfigFileName = "workspace.yaml"

// Config is the contents of a workspace.yaml file.
//
// Example:
//
//	name: datacenters
//	inventories:
//	  - name: ams
//	    path: ams/inventory.yaml
//	  - name: fra
//	    path: fra/inventory.db
//	    enabled: false
//	discovery:
//	  enabled: true
type Config struct {
	// Name labels the synthetic root the inventories are mounted under
	Name string `yaml:"name,omitempty"`

	// Inventories lists the inventory files of the workspace
	Inventories []InventoryConfig `yaml:"inventories,omitempty"`

	// Discovery finds additional inventories below the workspace root
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
}

// InventoryConfig describes one inventory of a workspace.
type InventoryConfig struct {
	// Name is the mount name (defaults to one derived from Path)
	Name string `yaml:"name,omitempty"`

	// Path to an inventory file or a directory holding one, relative to the
	// workspace root unless absolute
	Path string `yaml:"path"`

	// Enabled can switch an inventory off without removing it (default true)
	Enabled *bool `yaml:"enabled,omitempty"`
}

// DiscoveryConfig controls inventory discovery.
type DiscoveryConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty"`
	MaxDepth int      `yaml:"max_depth,omitempty"`
}

// GetName returns the mount name. Without an explicit name it is the file
// name without extension, or the directory name for files called
// "inventory.*" and for directory paths.
func (c InventoryConfig) GetName() string {
	if c.Name != "" {
		return c.Name
	}
	clean := filepath.Clean(c.Path)
	if clean == "." {
		return "inventory"
	}
	base := filepath.Base(clean)
	ext := filepath.Ext(base)
	if ext == "" {
		return base
	}
	name := strings.TrimSuffix(base, ext)
	name = strings.TrimSuffix(name, ".inv")
	if name == "inventory" {
		if dir := filepath.Base(filepath.Dir(clean)); dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return name
}

// IsEnabled reports whether the inventory should be loaded.
func (c InventoryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Validate checks the workspace for missing paths and clashing mount names.
func (c Config) Validate() error {
	if len(c.Inventories) == 0 && !c.Discovery.Enabled {
		return errors.New("workspace lists no inventories and discovery is disabled")
	}
	seen := make(map[string]int)
	for i, inv := range c.Inventories {
		if strings.TrimSpace(inv.Path) == "" {
			return fmt.Errorf("inventory %d (%q) has no path", i, inv.Name)
		}
		key := strings.ToLower(inv.GetName())
		if j, ok := seen[key]; ok {
			return fmt.Errorf("inventories %d and %d share the name %q", j, i, inv.GetName())
		}
		seen[key] = i
	}
	return nil
}

// DefaultDiscoveryPatterns are the file names discovery accepts.
func DefaultDiscoveryPatterns() []string {
	return []string{
		"inventory.yaml",
		"inventory.yml",
		"inventory.json",
		"inventory.db",
		"*.inv.yaml",
		"*.inv.yml",
		"*.inv.json",
		"*.inv.db",
	}
}

// DefaultExcludePatterns are the names discovery never descends into or loads.
func DefaultExcludePatterns() []string {
	return []string{".git", ConfigDirName, "node_modules", "vendor", "*.bak", "*.tmp"}
}

func (c *Config) applyDefaults() {
	if !c.Discovery.Enabled {
		return
	}
	if len(c.Discovery.Patterns) == 0 {
		c.Discovery.Patterns = DefaultDiscoveryPatterns()
	}
	if len(c.Discovery.Exclude) == 0 {
		c.Discovery.Exclude = DefaultExcludePatterns()
	}
	if c.Discovery.MaxDepth == 0 {
		c.Discovery.MaxDepth = 2
	}
}

// LoadConfig reads and validates a workspace file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workspace config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing workspace config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workspace config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes the workspace file, creating its directory.
func SaveConfig(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling workspace config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing workspace config: %w", err)
	}
	return nil
}

// FindWorkspaceConfig searches start and its parents for
// .netinv/workspace.yaml. It returns an error satisfying os.IsNotExist
// when there is none.
func FindWorkspaceConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// RootOf returns the workspace root for a workspace file: the directory
// containing .netinv/, or the file's own directory otherwise.
func RootOf(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == ConfigDirName {
		return filepath.Dir(dir)
	}
	return dir
}

// DefaultConfig is a workspace of the single inventory in the root directory.
func DefaultConfig() Config {
	return Config{
		Name:        "workspace",
		Inventories: []InventoryConfig{{Path: "."}},
	}
}

// ExampleConfig is written by "ni workspace init".
func ExampleConfig() Config {
	disabled := false
	return Config{
		Name: "datacenters",
		Inventories: []InventoryConfig{
			{Name: "ams", Path: "ams/inventory.yaml"},
			{Name: "fra", Path: "fra/inventory.db"},
			{Name: "lab", Path: "lab.inv.json", Enabled: &disabled},
		},
		Discovery: DiscoveryConfig{Enabled: false, MaxDepth: 2},
	}
}
