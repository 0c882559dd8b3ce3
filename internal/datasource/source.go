// Package datasource reads and writes inventory trees in every supported
// storage format (YAML, JSON, SQLite), and discovers and selects inventory
// files in a directory.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/netinv/pkg/inventory"
)

// ErrUnsupported indicates a path whose extension names no known format.
var ErrUnsupported = errors.New("unsupported inventory source")

// SourceType identifies the storage format of an inventory.
type SourceType string

const (
	// SourceTypeYAML is a YAML inventory document (.yaml, .yml)
	SourceTypeYAML SourceType = "yaml"
	// SourceTypeJSON is a JSON inventory document (.json)
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a SQLite inventory store (.db, .sqlite)
	SourceTypeSQLite SourceType = "sqlite"
)

// Priority values for source types (higher = preferred when equally fresh)
const (
	PrioritySQLite = 100
	PriorityYAML   = 80
	PriorityJSON   = 50
)

// Detect returns the source type implied by path's extension.
func Detect(path string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SourceTypeYAML, nil
	case ".json":
		return SourceTypeJSON, nil
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func priorityOf(t SourceType) int {
	switch t {
	case SourceTypeSQLite:
		return PrioritySQLite
	case SourceTypeYAML:
		return PriorityYAML
	default:
		return PriorityJSON
	}
}

// DataSource represents one inventory file found on disk
type DataSource struct {
	// Type identifies the source format
	Type SourceType `json:"type"`
	// Path is the path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// ItemCount is the number of items in the source (set during validation)
	ItemCount int `json:"item_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, items=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ItemCount, status)
}

// NewDataSource stats path and describes it. It fails for unknown formats
// and missing files.
func NewDataSource(path string) (DataSource, error) {
	t, err := Detect(path)
	if err != nil {
		return DataSource{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, err
	}
	return DataSource{
		Type:     t,
		Path:     path,
		Priority: priorityOf(t),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to scan (uses cwd if empty)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds inventory files in a directory, freshest first.
// Backups and editor leftovers are skipped.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || skipName(e.Name()) {
			continue
		}
		s, err := NewDataSource(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if opts.ValidateAfterDiscovery {
			if err := ValidateSource(&s); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", s.Path, err))
			}
			if !s.Valid && !opts.IncludeInvalid {
				continue
			}
		}
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", s.Type, s.Path, s.ModTime.Format(time.RFC3339)))
		}
		sources = append(sources, s)
	}

	// Sort by mod time, then priority
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// skipName reports backup, temp and hidden files.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.Contains(name, ".bak") ||
		strings.Contains(name, ".orig") ||
		strings.Contains(name, ".tmp")
}

// ValidateSource loads the source, validates every item and records the
// outcome on s.
func ValidateSource(s *DataSource) error {
	root, err := LoadFromSource(*s)
	if err == nil {
		err = inventory.FromTree(root).Validate()
	}
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.ItemCount = root.Count()
	return nil
}

// SelectBestSource returns the freshest valid source, preferring higher
// priority on equal modification times.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var best DataSource
	found := false
	for _, s := range sources {
		if !s.Valid {
			continue
		}
		if !found ||
			s.ModTime.After(best.ModTime) ||
			(s.ModTime.Equal(best.ModTime) && s.Priority > best.Priority) {
			best = s
			found = true
		}
	}
	if !found {
		return DataSource{}, fmt.Errorf("no valid inventory sources among %d candidates", len(sources))
	}
	return best, nil
}
