package edit

import "errors"

// Ordering errors
var (
	// ErrOutOfOrderUndo indicates Revoke was called while a later command's
	// effect is still live, or on a command that is not executed.
	ErrOutOfOrderUndo = errors.New("out of order undo")

	// ErrAlreadyExecuted indicates Execute was called on a live command.
	ErrAlreadyExecuted = errors.New("command already executed")

	// ErrIllegalRevokeState indicates the tree no longer holds what a command
	// inserted, so its effect cannot be removed.
	ErrIllegalRevokeState = errors.New("illegal revoke state")
)

// Construction errors
var (
	// ErrNilCounter indicates a command was built without a generation counter.
	ErrNilCounter = errors.New("nil generation counter")

	// ErrNilNode indicates a nil node in an insertion point or selection.
	ErrNilNode = errors.New("nil node")

	// ErrEmptySelection indicates a delete with nothing selected.
	ErrEmptySelection = errors.New("empty selection")

	// ErrDeleteRoot indicates a selection that contains a tree root.
	ErrDeleteRoot = errors.New("cannot delete a root node")

	// ErrMixedTrees indicates a selection spanning more than one tree.
	ErrMixedTrees = errors.New("selection spans several trees")
)

// History errors
var (
	// ErrNothingToUndo indicates an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)
