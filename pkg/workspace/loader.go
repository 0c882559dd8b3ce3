package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/netinv/internal/datasource"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// ErrUnknownMount is returned by SaveAll for a mounted group that does not
// belong to a successfully loaded inventory.
var ErrUnknownMount = errors.New("no inventory file for mount")

// LoadResult contains the result of loading a single inventory
type LoadResult struct {
	// Name is the mount name of the inventory
	Name string

	// Path is the concrete file the inventory was read from
	Path string

	// Root is the loaded tree, mounted under the workspace root on success
	Root *tree.Node[inventory.Item]

	// RootItem is the inventory's own root item, restored when saving back
	RootItem inventory.Item

	// Error is set if loading failed
	Error error
}

// AggregateLoader loads the inventories of a workspace
type AggregateLoader struct {
	config        *Config
	workspaceRoot string
	logger        *log.Logger
	limit         int
}

// NewAggregateLoader creates a new aggregate loader for the given workspace config
func NewAggregateLoader(config *Config, workspaceRoot string) *AggregateLoader {
	return &AggregateLoader{
		config:        config,
		workspaceRoot: workspaceRoot,
		// Silence by default. Callers can opt-in via SetLogger.
		logger: log.New(io.Discard, "", 0),
		limit:  8,
	}
}

// SetLogger sets a custom logger for error reporting
func (l *AggregateLoader) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// SetLimit sets how many inventories are read concurrently.
func (l *AggregateLoader) SetLimit(n int) {
	if n > 0 {
		l.limit = n
	}
}

// LoadAll loads every enabled inventory and mounts each one as a group under
// a synthetic root named after the workspace. Failed inventories are logged
// and reported in the results but don't break the overall load.
func (l *AggregateLoader) LoadAll(ctx context.Context) (*tree.Node[inventory.Item], []LoadResult, error) {
	if l.config == nil {
		return nil, nil, fmt.Errorf("workspace config is nil")
	}

	invs, err := l.collect()
	if err != nil {
		return nil, nil, err
	}
	if len(invs) == 0 {
		return nil, nil, fmt.Errorf("no enabled inventories in workspace")
	}

	results, err := l.loadParallel(ctx, invs)
	if err != nil {
		return nil, results, fmt.Errorf("fatal error during parallel loading: %w", err)
	}

	name := l.config.Name
	if name == "" {
		name = "workspace"
	}
	root := inventory.NewRoot(name)
	for _, r := range results {
		if r.Error != nil {
			l.logger.Printf("warning: failed to load inventory %q: %v", r.Name, r.Error)
			continue
		}
		if err := root.Append(r.Root); err != nil {
			return nil, results, fmt.Errorf("mounting %q: %w", r.Name, err)
		}
	}
	return root, results, nil
}

// collect returns the enabled inventories plus discovered ones, skipping
// discovered files that are already listed.
func (l *AggregateLoader) collect() ([]InventoryConfig, error) {
	var out []InventoryConfig
	listed := make(map[string]bool)
	for _, inv := range l.config.Inventories {
		listed[l.resolve(inv.Path)] = true
		if inv.IsEnabled() {
			out = append(out, inv)
		}
	}
	if !l.config.Discovery.Enabled {
		return out, nil
	}

	found, err := Discover(l.workspaceRoot, l.config.Discovery)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, inv := range out {
		names[strings.ToLower(inv.GetName())] = true
	}
	for _, rel := range found {
		if listed[l.resolve(rel)] {
			continue
		}
		inv := InventoryConfig{Path: rel}
		name := inv.GetName()
		for i := 2; names[strings.ToLower(name)]; i++ {
			name = fmt.Sprintf("%s-%d", inv.GetName(), i)
		}
		inv.Name = name
		names[strings.ToLower(name)] = true
		out = append(out, inv)
	}
	return out, nil
}

func (l *AggregateLoader) resolve(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.workspaceRoot, p)
	}
	return filepath.Clean(p)
}

// loadParallel loads all inventories concurrently using errgroup
func (l *AggregateLoader) loadParallel(ctx context.Context, invs []InventoryConfig) ([]LoadResult, error) {
	results := make([]LoadResult, len(invs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)

	for i, inv := range invs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = LoadResult{Name: inv.GetName(), Path: l.resolve(inv.Path), Error: ctx.Err()}
				return nil // Don't propagate context errors as fatal
			default:
			}
			results[i] = l.loadOne(inv)
			return nil // Individual failures are captured in results, not propagated
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	l.logger.Printf("Finished parallel loading of %d inventories", len(invs))
	return results, nil
}

// loadOne loads one inventory and renames its root to the mount name.
func (l *AggregateLoader) loadOne(inv InventoryConfig) LoadResult {
	res := LoadResult{Name: inv.GetName(), Path: l.resolve(inv.Path)}

	file, err := datasource.Resolve(res.Path)
	if err != nil {
		res.Error = fmt.Errorf("failed to load inventory %s: %w", res.Name, err)
		return res
	}
	res.Path = file

	root, err := datasource.Load(file)
	if err != nil {
		res.Error = fmt.Errorf("failed to load inventory %s: %w", res.Name, err)
		return res
	}
	res.RootItem = root.Value()
	mount := root.Value()
	mount.Kind = inventory.KindGroup
	mount.Name = res.Name
	mount.Host, mount.Port, mount.User = "", 0, ""
	root.SetValue(mount)
	res.Root = root
	return res
}

// SaveAll writes every mounted group of root back to the file it was loaded
// from, restoring the inventory's own root item. A group without a
// matching successful result is not written and fails with
// ErrUnknownMount. All failures are returned joined.
func SaveAll(root *tree.Node[inventory.Item], results []LoadResult) error {
	byName := make(map[string]LoadResult, len(results))
	for _, r := range results {
		if r.Error == nil {
			byName[r.Name] = r
		}
	}
	var errs []error
	for _, mount := range root.Children() {
		r, ok := byName[mount.Value().Name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownMount, mount.Value().Name))
			continue
		}
		copied := mount.Clone()
		item := r.RootItem.Clone()
		item.Tags = mount.Value().Clone().Tags
		item.Notes = mount.Value().Notes
		copied.SetValue(item)
		if err := datasource.Save(r.Path, copied); err != nil {
			errs = append(errs, fmt.Errorf("saving %s: %w", r.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Discover walks root up to cfg.MaxDepth directories deep and returns the
// paths (relative to root, sorted) of files matching cfg.Patterns.
func Discover(root string, cfg DiscoveryConfig) ([]string, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultDiscoveryPatterns()
	}
	exclude := cfg.Exclude
	if len(exclude) == 0 {
		exclude = DefaultExcludePatterns()
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}

	matchAny := func(name string, pats []string) bool {
		for _, p := range pats {
			if ok, _ := filepath.Match(p, name); ok {
				return true
			}
		}
		return false
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if d.IsDir() {
			if depth >= maxDepth || matchAny(d.Name(), exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchAny(d.Name(), exclude) && matchAny(d.Name(), patterns) {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering inventories: %w", err)
	}
	sort.Strings(found)
	return found, nil
}

// LoadAllFromConfig is a convenience function that loads a workspace config and all its inventories
func LoadAllFromConfig(ctx context.Context, configPath string) (*tree.Node[inventory.Item], []LoadResult, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workspace config: %w", err)
	}
	loader := NewAggregateLoader(config, RootOf(configPath))
	return loader.LoadAll(ctx)
}

// LoadSummary summarizes load results
type LoadSummary struct {
	TotalInventories      int
	SuccessfulInventories int
	FailedInventories     int
	TotalItems            int
	FailedNames           []string
}

// Summarize returns a summary of the load results
func Summarize(results []LoadResult) LoadSummary {
	summary := LoadSummary{
		TotalInventories: len(results),
	}

	for _, result := range results {
		if result.Error != nil {
			summary.FailedInventories++
			summary.FailedNames = append(summary.FailedNames, result.Name)
		} else {
			summary.SuccessfulInventories++
			summary.TotalItems += result.Root.Count()
		}
	}

	return summary
}

// String renders the summary as one line.
func (s LoadSummary) String() string {
	line := fmt.Sprintf("%d/%d inventories loaded, %d items", s.SuccessfulInventories, s.TotalInventories, s.TotalItems)
	if s.FailedInventories > 0 {
		line += fmt.Sprintf(" (failed: %s)", strings.Join(s.FailedNames, ", "))
	}
	return line
}
