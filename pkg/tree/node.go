// Package tree provides the live node hierarchy that edit commands mutate.
//
// A Node owns its children through an ordered slice. The parent link is a
// plain back-reference used for navigation; it never owns anything and is
// maintained exclusively by Insert, Append and Detach.
//
// Nothing in this package locks. Callers serialize access to a tree.
package tree

import (
	"fmt"
)

// Node is a live tree node wrapping a payload value of type V.
type Node[V any] struct {
	value    V
	label    string     // Cached display label, refreshed on SetValue
	children []*Node[V] // Owned, ordered children
	parent   *Node[V]   // Back-reference for navigation (nil for the root)

	// Expanded is a presentation hint. Inserting beneath a node expands it so
	// the new child is visible; it has no structural meaning.
	Expanded bool
}

// New returns a detached node holding v.
func New[V any](v V) *Node[V] {
	return &Node[V]{value: v, label: LabelOf(v)}
}

// LabelOf returns the display label for a payload value. Values implementing
// fmt.Stringer use their String method.
func LabelOf[V any](v V) string {
	if s, ok := any(v).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// Value returns the node's payload.
func (n *Node[V]) Value() V {
	return n.value
}

// SetValue replaces the payload and refreshes the cached label.
func (n *Node[V]) SetValue(v V) {
	n.value = v
	n.label = LabelOf(v)
}

// Label returns the cached display label.
func (n *Node[V]) Label() string {
	return n.label
}

// Parent returns the parent node, or nil for a root or detached node.
func (n *Node[V]) Parent() *Node[V] {
	return n.parent
}

// Children returns the node's children. The slice is owned by the node and
// must not be modified by the caller.
func (n *Node[V]) Children() []*Node[V] {
	return n.children
}

// Len returns the number of direct children.
func (n *Node[V]) Len() int {
	return len(n.children)
}

// Child returns the i-th child or nil when i is out of range.
func (n *Node[V]) Child(i int) *Node[V] {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// IndexOf returns the position of child among n's children, or -1.
func (n *Node[V]) IndexOf(child *Node[V]) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// IsRoot reports whether the node has no parent.
func (n *Node[V]) IsRoot() bool {
	return n.parent == nil
}

// IsLeaf reports whether the node has no children.
func (n *Node[V]) IsLeaf() bool {
	return len(n.children) == 0
}

// Root walks parent references up to the topmost node.
func (n *Node[V]) Root() *Node[V] {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Depth returns the number of ancestors (0 for a root).
func (n *Node[V]) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// IsAncestorOf reports whether n is a strict ancestor of other.
func (n *Node[V]) IsAncestorOf(other *Node[V]) bool {
	if other == nil {
		return false
	}
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Insert attaches child at position i (0 <= i <= Len()).
func (n *Node[V]) Insert(i int, child *Node[V]) error {
	if child.parent != nil {
		return ErrAlreadyAttached
	}
	if child == n || child.IsAncestorOf(n) {
		return ErrCycle
	}
	if i < 0 || i > len(n.children) {
		return fmt.Errorf("%w: insert at %d with %d children", ErrIndexOutOfRange, i, len(n.children))
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
	child.parent = n
	return nil
}

// Append attaches child after the last existing child.
func (n *Node[V]) Append(child *Node[V]) error {
	return n.Insert(len(n.children), child)
}

// RemoveAt detaches and returns the i-th child.
func (n *Node[V]) RemoveAt(i int) (*Node[V], error) {
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("%w: remove at %d with %d children", ErrIndexOutOfRange, i, len(n.children))
	}
	child := n.children[i]
	copy(n.children[i:], n.children[i+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
	child.parent = nil
	return child, nil
}

// Detach removes n from its parent and returns the index it occupied.
func (n *Node[V]) Detach() (int, error) {
	if n.parent == nil {
		return -1, ErrNotAttached
	}
	i := n.parent.IndexOf(n)
	if i < 0 {
		return -1, fmt.Errorf("%w: parent does not list node", ErrNotAttached)
	}
	if _, err := n.parent.RemoveAt(i); err != nil {
		return -1, err
	}
	return i, nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the visited node's children.
func (n *Node[V]) Walk(fn func(node *Node[V], depth int) bool) {
	var walk func(node *Node[V], depth int)
	walk = func(node *Node[V], depth int) {
		if !fn(node, depth) {
			return
		}
		for _, c := range node.children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// Count returns the number of nodes in the subtree rooted at n, n included.
func (n *Node[V]) Count() int {
	count := 0
	n.Walk(func(*Node[V], int) bool {
		count++
		return true
	})
	return count
}

// Clone returns a detached deep copy of the subtree rooted at n. Payload
// values are copied by assignment.
func (n *Node[V]) Clone() *Node[V] {
	c := New(n.value)
	c.Expanded = n.Expanded
	for _, child := range n.children {
		cc := child.Clone()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}
