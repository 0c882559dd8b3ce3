// Package forest builds detached, multi-root snapshots of tree selections.
//
// A Forest is what travels through the clipboard: it holds payload values
// only, never live tree nodes, so it can be pasted anywhere (any number of
// times) or serialized.
package forest

import (
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// Node is one record of a Forest.
type Node[V any] struct {
	Value    V
	Children []*Node[V]
}

// Forest is an ordered list of root records.
type Forest[V any] struct {
	Roots []*Node[V]
}

// Len returns the number of roots.
func (f Forest[V]) Len() int {
	return len(f.Roots)
}

// Size returns the number of records across all roots.
func (f Forest[V]) Size() int {
	size := 0
	f.Walk(func(*Node[V], int) bool {
		size++
		return true
	})
	return size
}

// IsEmpty reports whether the forest has no roots.
func (f Forest[V]) IsEmpty() bool {
	return len(f.Roots) == 0
}

// Walk visits every record in pre-order, roots first in order. Returning
// false skips the record's children.
func (f Forest[V]) Walk(fn func(n *Node[V], depth int) bool) {
	var walk func(n *Node[V], depth int)
	walk = func(n *Node[V], depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range f.Roots {
		walk(r, 0)
	}
}

// Values returns every record's value in pre-order.
func (f Forest[V]) Values() []V {
	var out []V
	f.Walk(func(n *Node[V], _ int) bool {
		out = append(out, n.Value)
		return true
	})
	return out
}

// Materialize creates a detached live subtree mirroring the record.
func (n *Node[V]) Materialize() *tree.Node[V] {
	live := tree.New(n.Value)
	for _, c := range n.Children {
		// A fresh, detached child cannot fail to attach.
		_ = live.Append(c.Materialize())
	}
	return live
}

// Map returns a copy of the forest with every value passed through fn.
func Map[V, W any](f Forest[V], fn func(V) W) Forest[W] {
	var conv func(n *Node[V]) *Node[W]
	conv = func(n *Node[V]) *Node[W] {
		out := &Node[W]{Value: fn(n.Value)}
		for _, c := range n.Children {
			out.Children = append(out.Children, conv(c))
		}
		return out
	}
	out := Forest[W]{Roots: make([]*Node[W], 0, len(f.Roots))}
	for _, r := range f.Roots {
		out.Roots = append(out.Roots, conv(r))
	}
	return out
}

// FromNodes snapshots the full subtree of every given node, in order. Unlike
// Build it keeps unselected descendants and does not merge anything.
func FromNodes[V any](nodes []*tree.Node[V]) Forest[V] {
	var snap func(n *tree.Node[V]) *Node[V]
	snap = func(n *tree.Node[V]) *Node[V] {
		out := &Node[V]{Value: n.Value()}
		for _, c := range n.Children() {
			out.Children = append(out.Children, snap(c))
		}
		return out
	}
	var f Forest[V]
	for _, n := range nodes {
		if n == nil {
			continue
		}
		f.Roots = append(f.Roots, snap(n))
	}
	return f
}
