package session

import "errors"

var (
	// ErrNoSelection indicates an operation that needs at least one location.
	ErrNoSelection = errors.New("no selection")

	// ErrUnsavedChanges indicates a reload that would discard edits.
	ErrUnsavedChanges = errors.New("unsaved changes")

	// ErrTreeReplaced indicates an update whose target tree was reloaded
	// while the update was being prepared.
	ErrTreeReplaced = errors.New("tree replaced during update")

	// ErrClosed indicates use of a session after Close.
	ErrClosed = errors.New("session closed")
)
