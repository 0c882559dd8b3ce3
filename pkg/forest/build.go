package forest

import (
	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// NodePath is the root-first chain of payload values leading to one node.
type NodePath[V any] []V

// PathOf returns the chain of values from n's root down to n.
func PathOf[V any](n *tree.Node[V]) NodePath[V] {
	var rev []V
	for cur := n; cur != nil; cur = cur.Parent() {
		rev = append(rev, cur.Value())
	}
	path := make(NodePath[V], len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path
}

// Build extracts a forest from a selection of comparable payloads.
// See BuildFunc.
func Build[V comparable](selected []*tree.Node[V]) Forest[V] {
	return BuildFunc(selected, func(a, b V) bool { return a == b })
}

// BuildFunc extracts a minimal forest mirroring the hierarchy among the
// selected nodes.
//
// Ancestors shared by the whole selection are stripped. A single selected
// node becomes a lone root with no ancestry. Selected nodes that descend from
// other selected nodes are nested below them, and common ancestor prefixes
// of several selected descendants are merged into one record. Only the
// selected nodes and the ancestors needed to relate them are copied;
// unselected descendants are not.
//
// eq decides payload identity for both stripping and merging.
func BuildFunc[V any](selected []*tree.Node[V], eq func(a, b V) bool) Forest[V] {
	defer metrics.Timer(metrics.ForestBuild)()

	paths := make([]NodePath[V], 0, len(selected))
	for _, n := range selected {
		if n != nil {
			paths = append(paths, PathOf(n))
		}
	}
	paths = stripCommon(paths, eq)

	var f Forest[V]
	for _, p := range paths {
		f.add(p, eq)
	}
	debug.Log("forest: %d selected -> %d roots, %d records", len(selected), f.Len(), f.Size())
	return f
}

// stripCommon drops the leading values every path agrees on. It never
// empties a path: once any path is down to its selected node, stripping
// stops so that node keeps its place in the forest.
func stripCommon[V any](paths []NodePath[V], eq func(a, b V) bool) []NodePath[V] {
	switch len(paths) {
	case 0:
		return paths
	case 1:
		p := paths[0]
		return []NodePath[V]{p[len(p)-1:]}
	}
	for {
		for _, p := range paths {
			if len(p) <= 1 {
				return paths
			}
		}
		head := paths[0][0]
		for _, p := range paths[1:] {
			if !eq(head, p[0]) {
				return paths
			}
		}
		for i := range paths {
			paths[i] = paths[i][1:]
		}
	}
}

// add merges one reduced path into the forest, reusing equal records at
// every level.
func (f *Forest[V]) add(p NodePath[V], eq func(a, b V) bool) {
	if len(p) == 0 {
		return
	}
	cur := findOrAdd(&f.Roots, p[0], eq)
	for _, v := range p[1:] {
		cur = findOrAdd(&cur.Children, v, eq)
	}
}

func findOrAdd[V any](list *[]*Node[V], v V, eq func(a, b V) bool) *Node[V] {
	for _, n := range *list {
		if eq(n.Value, v) {
			return n
		}
	}
	n := &Node[V]{Value: v}
	*list = append(*list, n)
	return n
}
