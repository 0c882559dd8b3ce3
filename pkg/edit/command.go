package edit

import (
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// AppendIndex requests insertion after the parent's last child.
const AppendIndex = -1

// Command is a reversible edit.
type Command[V any] interface {
	// Execute applies the edit and returns the node most relevant to it
	// (the inserted node, the parent a forest went into, the modified node,
	// or the parent of the first deleted node).
	Execute() (*tree.Node[V], error)

	// Revoke undoes the edit. It fails with ErrOutOfOrderUndo unless this is
	// the most recently executed command on the shared Counter.
	Revoke() error

	// Description is a display string for undo history views.
	Description() string

	// Executed reports whether the edit is currently applied.
	Executed() bool
}

// Point names where an insertion goes: beneath Parent, at Index. An Index of
// AppendIndex, or one at or past the child count, appends.
type Point[V any] struct {
	Parent *tree.Node[V]
	Index  int
}

// At is shorthand for Point{Parent: parent, Index: index}.
func At[V any](parent *tree.Node[V], index int) Point[V] {
	return Point[V]{Parent: parent, Index: index}
}

// anchor is an insertion point captured as a location.
type anchor[V any] struct {
	root      *tree.Node[V]
	parentLoc tree.Location
	index     int

	// filled in by Execute
	at       int
	appended bool
}

func newAnchor[V any](p Point[V]) (anchor[V], error) {
	if p.Parent == nil {
		return anchor[V]{}, ErrNilNode
	}
	root := p.Parent.Root()
	loc, err := tree.LocationOf(p.Parent, root)
	if err != nil {
		return anchor[V]{}, err
	}
	return anchor[V]{root: root, parentLoc: loc, index: p.Index}, nil
}

// resolve finds the live parent and fixes the effective insertion index.
func (a *anchor[V]) resolve() (*tree.Node[V], error) {
	parent, err := tree.Resolve(a.parentLoc, a.root)
	if err != nil {
		return nil, err
	}
	a.at = a.index
	a.appended = a.index < 0 || a.index >= parent.Len()
	if a.appended {
		a.at = parent.Len()
	}
	return parent, nil
}

// start returns where n previously inserted children begin in parent.
func (a *anchor[V]) start(parent *tree.Node[V], n int) int {
	if a.appended {
		return parent.Len() - n
	}
	return a.at
}
