// Package hooks runs shell commands around inventory saves.
// Hooks are configured in .netinv/hooks.yaml next to the inventory (or in
// the workspace root) and run before and after the files are written.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase is when a hook runs.
type Phase string

const (
	// PreSave runs before any file is written. Failure cancels the save.
	PreSave Phase = "pre-save"
	// PostSave runs after the files are written. Failure is reported but
	// the save stands.
	PostSave Phase = "post-save"
)

// OnError values.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"` // values are expanded against the environment
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"`
}

// Config holds the hooks of every phase.
type Config struct {
	Hooks ByPhase `yaml:"hooks" json:"hooks"`
}

// ByPhase groups hooks by phase.
type ByPhase struct {
	PreSave  []Hook `yaml:"pre-save,omitempty" json:"pre-save,omitempty"`
	PostSave []Hook `yaml:"post-save,omitempty" json:"post-save,omitempty"`
}

// HasHooks reports whether any hook is configured.
func (c *Config) HasHooks() bool {
	return c != nil && (len(c.Hooks.PreSave) > 0 || len(c.Hooks.PostSave) > 0)
}

// Get returns the hooks of one phase.
func (c *Config) Get(phase Phase) []Hook {
	if c == nil {
		return nil
	}
	switch phase {
	case PreSave:
		return c.Hooks.PreSave
	case PostSave:
		return c.Hooks.PostSave
	}
	return nil
}

// SaveContext describes a save to the hooks, through NI_* environment
// variables.
type SaveContext struct {
	Target    string    // NI_SAVE_TARGET: file or workspace being saved
	Paths     []string  // NI_SAVE_PATHS: files written, joined with the path list separator
	ItemCount int       // NI_ITEM_COUNT: items in the tree
	Timestamp time.Time // NI_TIMESTAMP: RFC3339
}

// ToEnv converts the context to environment variables.
func (c SaveContext) ToEnv() []string {
	return []string{
		"NI_SAVE_TARGET=" + c.Target,
		"NI_SAVE_PATHS=" + strings.Join(c.Paths, string(os.PathListSeparator)),
		"NI_ITEM_COUNT=" + strconv.Itoa(c.ItemCount),
		"NI_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// DefaultTimeout applies to hooks that set none.
const DefaultTimeout = 30 * time.Second

// Dir and File locate the hook configuration below a project directory.
const (
	Dir  = ".netinv"
	File = "hooks.yaml"
)

// Loader reads the hook configuration of one directory.
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProjectDir sets the directory holding .netinv/ (default: the working
// directory).
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// Path is the hook file the loader reads.
func (l *Loader) Path() string {
	return filepath.Join(l.projectDir, Dir, File)
}

// Load reads the hook file. A missing file means no hooks.
func (l *Loader) Load() error {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	config.Hooks.PreSave, l.warnings = normalize(config.Hooks.PreSave, PreSave, l.warnings)
	config.Hooks.PostSave, l.warnings = normalize(config.Hooks.PostSave, PostSave, l.warnings)
	l.config = &config
	return nil
}

// normalize applies defaults, drops empty commands, and accumulates warnings.
func normalize(hooks []Hook, phase Phase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case "":
			hook.OnError = OnErrorContinue
			if phase == PreSave {
				hook.OnError = OnErrorFail
			}
		case OnErrorFail, OnErrorContinue:
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using %q", phase, i+1, hook.OnError, OnErrorFail))
			hook.OnError = OnErrorFail
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration, empty before Load.
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks reports whether any hook was loaded.
func (l *Loader) HasHooks() bool {
	return l.config.HasHooks()
}

// Warnings returns problems found while loading.
func (l *Loader) Warnings() []string {
	return l.warnings
}

// LoadDir loads the hooks of dir. It returns nil when none are configured.
func LoadDir(dir string) (*Config, []string, error) {
	l := NewLoader(WithProjectDir(dir))
	if err := l.Load(); err != nil {
		return nil, nil, err
	}
	if !l.HasHooks() {
		return nil, l.Warnings(), nil
	}
	return l.Config(), l.Warnings(), nil
}

// UnmarshalYAML accepts timeouts as durations ("5s") or bare seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Must list every Hook field; only Timeout changes type.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}
	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
			return nil
		}
		seconds, scanErr := strconv.ParseFloat(dto.Timeout, 64)
		if scanErr != nil {
			return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
		}
		h.Timeout = time.Duration(seconds * float64(time.Second))
	}
	return nil
}
