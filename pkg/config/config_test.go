package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.History.Limit != 200 {
		t.Errorf("expected history limit 200, got %d", cfg.History.Limit)
	}
	if cfg.Clipboard.Format != "yaml" || !cfg.Clipboard.System {
		t.Errorf("unexpected clipboard defaults %+v", cfg.Clipboard)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("unexpected watch defaults %+v", cfg.Watch)
	}
	if cfg.UI.Color != "auto" {
		t.Errorf("expected color 'auto', got %q", cfg.UI.Color)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.History.Limit != 200 {
		t.Errorf("expected default config, got limit %d", cfg.History.Limit)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
inventory: ~/lab/inventory.db

history:
  limit: 50

clipboard:
  format: json
  system: false

watch:
  enabled: true
  debounce: 500ms
  force_poll: true

ui:
  color: never
  width: 100

workspaces:
  - name: dcs
    path: ~/dcs/.netinv/workspace.yaml
  - name: lab
    path: /srv/lab/workspace.yaml
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "lab/inventory.db"); cfg.Inventory != want {
		t.Errorf("expected expanded inventory %q, got %q", want, cfg.Inventory)
	}
	if cfg.History.Limit != 50 {
		t.Errorf("expected limit 50, got %d", cfg.History.Limit)
	}
	if cfg.Clipboard.Format != "json" || cfg.Clipboard.System {
		t.Errorf("clipboard = %+v", cfg.Clipboard)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond || !cfg.Watch.ForcePoll {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.UI.Color != "never" || cfg.UI.Width != 100 {
		t.Errorf("ui = %+v", cfg.UI)
	}
	if len(cfg.Workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(cfg.Workspaces))
	}
	if want := filepath.Join(home, "dcs/.netinv/workspace.yaml"); cfg.Workspaces[0].Path != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Workspaces[0].Path)
	}
	if cfg.Workspaces[1].Path != "/srv/lab/workspace.yaml" {
		t.Errorf("expected absolute path preserved, got %q", cfg.Workspaces[1].Path)
	}
}

func TestLoadFrom_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  width: 80\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UI.Width != 80 || cfg.History.Limit != 200 || cfg.Clipboard.Format != "yaml" {
		t.Errorf("unset keys should keep defaults, got %+v", cfg)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"yaml syntax", "{{invalid yaml", "parsing config"},
		{"negative limit", "history:\n  limit: -1\n", "history.limit"},
		{"clipboard format", "clipboard:\n  format: toml\n", "clipboard.format"},
		{"color", "ui:\n  color: rainbow\n", "ui.color"},
		{"width", "ui:\n  width: -3\n", "ui.width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Inventory = "/srv/inventory.yaml"
	cfg.History.Limit = 10
	cfg.Clipboard.Format = "json"
	cfg.Watch.Debounce = time.Second
	cfg.Workspaces = []Workspace{{Name: "dcs", Path: "/srv/dcs/workspace.yaml"}}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.Inventory != cfg.Inventory || loaded.History.Limit != 10 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.Clipboard.Format != "json" || loaded.Watch.Debounce != time.Second {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.FindWorkspace("dcs") == nil {
		t.Error("workspace lost")
	}

	cfg.UI.Color = "sometimes"
	if err := SaveTo(cfg, path); err == nil {
		t.Error("SaveTo should reject an invalid config")
	}
}

func TestFindWorkspace(t *testing.T) {
	cfg := Config{
		Workspaces: []Workspace{
			{Name: "alpha", Path: "/a"},
			{Name: "Beta", Path: "~/b"},
		},
	}

	if w := cfg.FindWorkspace("alpha"); w == nil || w.Name != "alpha" {
		t.Error("expected to find 'alpha'")
	}
	w := cfg.FindWorkspace("BETA")
	if w == nil || w.Name != "Beta" {
		t.Fatal("expected to find 'Beta' case-insensitively")
	}
	if home, err := os.UserHomeDir(); err == nil && w.ResolvedPath() != filepath.Join(home, "b") {
		t.Errorf("ResolvedPath() = %q", w.ResolvedPath())
	}
	if cfg.FindWorkspace("nonexistent") != nil {
		t.Error("expected nil for nonexistent workspace")
	}
}

func TestInventoryPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	if got, want := DefaultConfig().InventoryPath(), filepath.Join(dir, "netinv", "inventory.yaml"); got != want {
		t.Errorf("InventoryPath() = %q, want %q", got, want)
	}
	cfg := Config{Inventory: "/srv/inv.db"}
	if got := cfg.InventoryPath(); got != "/srv/inv.db" {
		t.Errorf("InventoryPath() = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}
	for _, tt := range tests {
		if got := expandHome(tt.input); got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestXDGOverrides(t *testing.T) {
	tests := []struct {
		env string
		fn  func() string
	}{
		{"XDG_CONFIG_HOME", ConfigDir},
		{"XDG_DATA_HOME", DataDir},
		{"XDG_STATE_HOME", StateDir},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv(tt.env, dir)
			if got, want := tt.fn(), filepath.Join(dir, "netinv"); got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})
	}

	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	if got, want := HistoryFile(), filepath.Join(dir, "netinv", "repl_history"); got != want {
		t.Errorf("HistoryFile() = %q, want %q", got, want)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	if got, want := ConfigPath(), filepath.Join(dir, "netinv", "config.yaml"); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}
