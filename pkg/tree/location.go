package tree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Location is the chain of child indices leading from a root to a node.
// The empty Location addresses the root itself.
//
// A Location is a snapshot: it stays meaningful only until an ancestor's
// child list changes. Always re-resolve it with Resolve right before use.
type Location []int

// LocationOf walks from n up to root and records the child index taken at
// every level. It fails with ErrPrecomposition when root is not an ancestor
// of n (or n itself).
func LocationOf[V any](n, root *Node[V]) (Location, error) {
	if n == nil || root == nil {
		return nil, fmt.Errorf("%w: nil node", ErrPrecomposition)
	}
	var rev []int
	for cur := n; cur != root; cur = cur.parent {
		p := cur.parent
		if p == nil {
			return nil, ErrPrecomposition
		}
		i := p.IndexOf(cur)
		if i < 0 {
			return nil, fmt.Errorf("%w: parent does not list child", ErrPrecomposition)
		}
		rev = append(rev, i)
	}
	loc := make(Location, len(rev))
	for i, idx := range rev {
		loc[len(rev)-1-i] = idx
	}
	return loc, nil
}

// Resolve walks down from root following loc. An index that no longer
// exists yields ErrStaleLocation.
func Resolve[V any](loc Location, root *Node[V]) (*Node[V], error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrStaleLocation)
	}
	cur := root
	for depth, idx := range loc {
		if idx < 0 || idx >= len(cur.children) {
			return nil, fmt.Errorf("%w: %s: index %d at depth %d, node has %d children",
				ErrStaleLocation, loc, idx, depth, len(cur.children))
		}
		cur = cur.children[idx]
	}
	return cur, nil
}

// IsRoot reports whether l addresses the root.
func (l Location) IsRoot() bool {
	return len(l) == 0
}

// Parent returns the location of the parent. The root's parent is the root.
func (l Location) Parent() Location {
	if len(l) == 0 {
		return Location{}
	}
	return slices.Clone(l[:len(l)-1])
}

// Last returns the final index, or -1 for the root.
func (l Location) Last() int {
	if len(l) == 0 {
		return -1
	}
	return l[len(l)-1]
}

// Child returns the location of the i-th child of l.
func (l Location) Child(i int) Location {
	out := make(Location, len(l)+1)
	copy(out, l)
	out[len(l)] = i
	return out
}

// Clone returns an independent copy of l.
func (l Location) Clone() Location {
	return slices.Clone(l)
}

// Equal reports whether both locations address the same position.
func (l Location) Equal(other Location) bool {
	return slices.Equal(l, other)
}

// String renders l as "/0/2/1"; the root is "/".
func (l Location) String() string {
	if len(l) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, idx := range l {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// ParseLocation parses the form produced by String. Leading and trailing
// slashes are optional, so "0/2" and "/0/2/" are accepted too.
func ParseLocation(s string) (Location, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return Location{}, nil
	}
	parts := strings.Split(s, "/")
	loc := make(Location, 0, len(parts))
	for _, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
		}
		loc = append(loc, idx)
	}
	return loc, nil
}

// CompareLocations orders locations depth first: shorter paths sort before
// longer ones, and equal-length paths compare index by index from the left.
func CompareLocations(a, b Location) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// SortLocations sorts locs in place using CompareLocations.
func SortLocations(locs []Location) {
	slices.SortStableFunc(locs, CompareLocations)
}
