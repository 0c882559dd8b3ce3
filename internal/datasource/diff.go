package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// SourceDiff represents differences between two inventory trees. Items are
// matched by their name path ("lab/web/web-1"), so moving an item counts as
// a removal plus an addition.
type SourceDiff struct {
	// SourceA is the name of the first tree
	SourceA string
	// SourceB is the name of the second tree
	SourceB string
	// MissingInA contains paths present in B but not in A
	MissingInA []string
	// MissingInB contains paths present in A but not in B
	MissingInB []string
	// Changed contains items present in both with different fields
	Changed []FieldDifference
	// Reordered contains parents whose children appear in a different order
	Reordered []string
	// CountA is the number of items in tree A
	CountA int
	// CountB is the number of items in tree B
	CountB int
}

// FieldDifference represents one changed field of an item
type FieldDifference struct {
	Path   string `json:"path"`
	Field  string `json:"field"`
	ValueA string `json:"value_a"`
	ValueB string `json:"value_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.Changed) > 0 || len(d.Reordered) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d items each)", d.CountA)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Differences between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&sb, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	list := func(header string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "  - %d %s\n", len(items), header)
		if len(items) <= 5 {
			for _, p := range items {
				fmt.Fprintf(&sb, "    - %s\n", p)
			}
		}
	}
	list(fmt.Sprintf("items in %s but not %s", d.SourceB, d.SourceA), d.MissingInA)
	list(fmt.Sprintf("items in %s but not %s", d.SourceA, d.SourceB), d.MissingInB)
	if len(d.Changed) > 0 {
		fmt.Fprintf(&sb, "  - %d changed fields\n", len(d.Changed))
		if len(d.Changed) <= 5 {
			for _, c := range d.Changed {
				fmt.Fprintf(&sb, "    - %s %s: %q vs %q\n", c.Path, c.Field, c.ValueA, c.ValueB)
			}
		}
	}
	list("groups with reordered children", d.Reordered)
	return sb.String()
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// IgnoreOrder skips the sibling order comparison
	IgnoreOrder bool
	// MaxDifferences limits the number of field differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

// indexTree maps every item's name path to its item and child path list.
// Duplicate sibling names get a "#n" suffix so they stay distinguishable.
func indexTree(root *tree.Node[inventory.Item]) (map[string]inventory.Item, map[string][]string) {
	items := make(map[string]inventory.Item)
	order := make(map[string][]string)
	var walk func(n *tree.Node[inventory.Item], path string)
	walk = func(n *tree.Node[inventory.Item], path string) {
		items[path] = n.Value()
		seen := make(map[string]int)
		for _, c := range n.Children() {
			name := c.Value().Name
			seen[name]++
			if seen[name] > 1 {
				name = fmt.Sprintf("%s#%d", name, seen[name])
			}
			p := path + "/" + name
			order[path] = append(order[path], p)
			walk(c, p)
		}
	}
	walk(root, root.Value().Name)
	return items, order
}

// DetectInconsistencies compares two trees and returns their differences
func DetectInconsistencies(a, b *tree.Node[inventory.Item], nameA, nameB string, opts DiffOptions) SourceDiff {
	itemsA, orderA := indexTree(a)
	itemsB, orderB := indexTree(b)
	diff := SourceDiff{SourceA: nameA, SourceB: nameB, CountA: len(itemsA), CountB: len(itemsB)}

	for p := range itemsB {
		if _, ok := itemsA[p]; !ok {
			diff.MissingInA = append(diff.MissingInA, p)
		}
	}
	for p, ia := range itemsA {
		ib, ok := itemsB[p]
		if !ok {
			diff.MissingInB = append(diff.MissingInB, p)
			continue
		}
		for _, fd := range compareItems(p, ia, ib) {
			if opts.MaxDifferences > 0 && len(diff.Changed) >= opts.MaxDifferences {
				break
			}
			diff.Changed = append(diff.Changed, fd)
		}
		if !opts.IgnoreOrder && !sameOrder(orderA[p], orderB[p], itemsA, itemsB) {
			diff.Reordered = append(diff.Reordered, p)
		}
	}

	sort.Strings(diff.MissingInA)
	sort.Strings(diff.MissingInB)
	sort.Strings(diff.Reordered)
	sort.Slice(diff.Changed, func(i, j int) bool {
		if diff.Changed[i].Path != diff.Changed[j].Path {
			return diff.Changed[i].Path < diff.Changed[j].Path
		}
		return diff.Changed[i].Field < diff.Changed[j].Field
	})
	return diff
}

// sameOrder compares the relative order of the children both sides share.
func sameOrder(a, b []string, itemsA, itemsB map[string]inventory.Item) bool {
	var sharedA, sharedB []string
	for _, p := range a {
		if _, ok := itemsB[p]; ok {
			sharedA = append(sharedA, p)
		}
	}
	for _, p := range b {
		if _, ok := itemsA[p]; ok {
			sharedB = append(sharedB, p)
		}
	}
	if len(sharedA) != len(sharedB) {
		return false
	}
	for i := range sharedA {
		if sharedA[i] != sharedB[i] {
			return false
		}
	}
	return true
}

func compareItems(path string, a, b inventory.Item) []FieldDifference {
	var out []FieldDifference
	add := func(field, va, vb string) {
		if va != vb {
			out = append(out, FieldDifference{Path: path, Field: field, ValueA: va, ValueB: vb})
		}
	}
	add("kind", string(a.Kind), string(b.Kind))
	add("host", a.Host, b.Host)
	add("port", fmt.Sprint(a.Port), fmt.Sprint(b.Port))
	add("user", a.User, b.User)
	add("tags", strings.Join(a.Tags, ","), strings.Join(b.Tags, ","))
	add("notes", a.Notes, b.Notes)
	return out
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	a, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", sourceA.Path, err)
	}
	b, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", sourceB.Path, err)
	}
	diff := DetectInconsistencies(a, b, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}
