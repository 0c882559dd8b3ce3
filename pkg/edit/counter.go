// Package edit implements reversible edit commands over a tree.Node tree.
//
// Commands capture, at construction, enough state to apply their change
// (Execute) and to undo it exactly (Revoke). They address nodes by
// tree.Location and re-resolve those locations against the live tree every
// time they run, so a command never holds on to a node that an intervening
// command might have replaced.
//
// All commands acting on one tree share a Counter. Execute advances it and
// remembers the new value; Revoke is only accepted while the counter still
// holds that value. That makes any undo that skips over a later, still
// live command fail with ErrOutOfOrderUndo instead of corrupting the tree.
package edit

import "fmt"

// unexecuted marks a command whose effect is not live.
const unexecuted int64 = 0

// Counter is the generation counter shared by every command acting on one
// tree. Create one per tree and history; never share it across trees.
type Counter struct {
	serial int64
}

// NewCounter returns a counter at generation zero.
func NewCounter() *Counter {
	return &Counter{}
}

// Serial returns the current generation.
func (c *Counter) Serial() int64 {
	return c.serial
}

// generation is the execute/revoke bookkeeping embedded in every command.
type generation struct {
	counter         *Counter
	revokeAllowedAt int64
}

func newGeneration(c *Counter) (generation, error) {
	if c == nil {
		return generation{}, ErrNilCounter
	}
	return generation{counter: c, revokeAllowedAt: unexecuted}, nil
}

// Executed reports whether the command's effect is currently live.
func (g *generation) Executed() bool {
	return g.revokeAllowedAt != unexecuted
}

// beginExecute refuses to run a command twice.
func (g *generation) beginExecute() error {
	if g.Executed() {
		return fmt.Errorf("%w (generation %d)", ErrAlreadyExecuted, g.revokeAllowedAt)
	}
	return nil
}

// commitExecute advances the shared counter and records the generation at
// which this command may be revoked.
func (g *generation) commitExecute() {
	next := g.counter.serial + 1
	g.revokeAllowedAt = next
	g.counter.serial = next
}

// beginRevoke accepts a revoke only while this command is the latest live one.
func (g *generation) beginRevoke() error {
	if !g.Executed() {
		return fmt.Errorf("%w: command is not executed (counter at %d)", ErrOutOfOrderUndo, g.counter.serial)
	}
	if g.counter.serial != g.revokeAllowedAt {
		return fmt.Errorf("%w: counter at %d, command executed at %d",
			ErrOutOfOrderUndo, g.counter.serial, g.revokeAllowedAt)
	}
	return nil
}

// commitRevoke rewinds the counter so the previous command becomes revocable.
func (g *generation) commitRevoke() {
	g.counter.serial = g.revokeAllowedAt - 1
	g.revokeAllowedAt = unexecuted
}
