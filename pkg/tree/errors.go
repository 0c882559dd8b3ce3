package tree

import "errors"

// Addressing errors
var (
	// ErrPrecomposition indicates that a node is not a descendant of the root
	// it was located against.
	ErrPrecomposition = errors.New("node is not a descendant of the given root")

	// ErrStaleLocation indicates that a Location no longer resolves because
	// the tree changed shape since it was captured.
	ErrStaleLocation = errors.New("stale location")

	// ErrInvalidLocation indicates that a textual location could not be parsed.
	ErrInvalidLocation = errors.New("invalid location")
)

// Structural errors
var (
	// ErrIndexOutOfRange indicates a child index outside the parent's child list.
	ErrIndexOutOfRange = errors.New("child index out of range")

	// ErrAlreadyAttached indicates an attempt to insert a node that still has a parent.
	ErrAlreadyAttached = errors.New("node already has a parent")

	// ErrNotAttached indicates an attempt to detach a node that has no parent.
	ErrNotAttached = errors.New("node has no parent")

	// ErrCycle indicates an attempt to insert a node beneath itself.
	ErrCycle = errors.New("node cannot be inserted beneath itself")
)
