package edit

import (
	"fmt"

	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// DefaultHistoryLimit bounds the undo stack when no limit is configured.
const DefaultHistoryLimit = 200

// Entry describes one command on a History stack.
type Entry struct {
	Description string
	Undone      bool // true for entries on the redo stack
}

// History is an undo/redo stack of commands sharing one Counter. Commands
// pushed with Do must have been built with that counter.
type History[V any] struct {
	undo  []Command[V]
	redo  []Command[V]
	limit int

	// cleanAt is the undo depth that matches the last saved state, or -1
	// once that state can no longer be reached through undo/redo.
	cleanAt int
}

// NewHistory returns an empty history keeping at most limit undo entries
// (DefaultHistoryLimit when limit <= 0).
func NewHistory[V any](limit int) *History[V] {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History[V]{limit: limit}
}

// Do executes cmd and pushes it. A successful Do discards the redo stack.
func (h *History[V]) Do(cmd Command[V]) (*tree.Node[V], error) {
	n, err := cmd.Execute()
	if err != nil {
		return nil, err
	}
	if h.cleanAt > len(h.undo) {
		h.cleanAt = -1
	}
	h.redo = nil
	h.undo = append(h.undo, cmd)
	if over := len(h.undo) - h.limit; over > 0 {
		clear(h.undo[:over])
		h.undo = h.undo[over:]
		if h.cleanAt >= 0 {
			h.cleanAt -= over
			if h.cleanAt < 0 {
				h.cleanAt = -1
			}
		}
	}
	return n, nil
}

// Undo revokes the most recent command and moves it to the redo stack.
func (h *History[V]) Undo() (Command[V], error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.Revoke(); err != nil {
		return nil, fmt.Errorf("undo %q: %w", cmd.Description(), err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	metrics.Undos.Inc()
	return cmd, nil
}

// Redo executes the most recently undone command again.
func (h *History[V]) Redo() (Command[V], error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	if _, err := cmd.Execute(); err != nil {
		return nil, fmt.Errorf("redo %q: %w", cmd.Description(), err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	metrics.Redos.Inc()
	return cmd, nil
}

// CanUndo reports whether Undo has something to revoke.
func (h *History[V]) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether Redo has something to execute.
func (h *History[V]) CanRedo() bool {
	return len(h.redo) > 0
}

// Len returns the number of undoable commands.
func (h *History[V]) Len() int {
	return len(h.undo)
}

// Limit returns the maximum undo depth.
func (h *History[V]) Limit() int {
	return h.limit
}

// Entries lists the undo stack oldest first, followed by the redo stack in
// the order Redo would replay it.
func (h *History[V]) Entries() []Entry {
	out := make([]Entry, 0, len(h.undo)+len(h.redo))
	for _, c := range h.undo {
		out = append(out, Entry{Description: c.Description()})
	}
	for i := len(h.redo) - 1; i >= 0; i-- {
		out = append(out, Entry{Description: h.redo[i].Description(), Undone: true})
	}
	return out
}

// MarkClean records the current state as saved.
func (h *History[V]) MarkClean() {
	h.cleanAt = len(h.undo)
}

// Clean reports whether the tree matches the last saved state.
func (h *History[V]) Clean() bool {
	return h.cleanAt == len(h.undo)
}

// Clear forgets every command. Use it when the tree is replaced wholesale,
// for example after reloading from disk.
func (h *History[V]) Clear() {
	h.undo = nil
	h.redo = nil
	h.cleanAt = 0
}
