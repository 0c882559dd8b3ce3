package edit

import (
	"fmt"

	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/forest"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// InsertNode inserts a single new node holding a value.
type InsertNode[V any] struct {
	generation
	anchor[V]
	value V
}

var _ Command[string] = (*InsertNode[string])(nil)

// NewInsertNode prepares the insertion of value at p.
func NewInsertNode[V any](c *Counter, p Point[V], value V) (*InsertNode[V], error) {
	g, err := newGeneration(c)
	if err != nil {
		return nil, err
	}
	a, err := newAnchor(p)
	if err != nil {
		return nil, fmt.Errorf("insert node: %w", err)
	}
	return &InsertNode[V]{generation: g, anchor: a, value: value}, nil
}

// Description implements Command.
func (c *InsertNode[V]) Description() string {
	return "Insert " + tree.LabelOf(c.value)
}

// Execute inserts the node and returns it.
func (c *InsertNode[V]) Execute() (*tree.Node[V], error) {
	if err := c.beginExecute(); err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.CommandExecute)()

	parent, err := c.resolve()
	if err != nil {
		return nil, fmt.Errorf("insert node: %w", err)
	}
	parent.Expanded = true
	n := tree.New(c.value)
	if err := parent.Insert(c.at, n); err != nil {
		return nil, fmt.Errorf("insert node: %w", err)
	}
	c.commitExecute()
	debug.Log("insert %q at %s[%d] (gen %d)", n.Label(), c.parentLoc, c.at, c.revokeAllowedAt)
	return n, nil
}

// Revoke removes the node again.
func (c *InsertNode[V]) Revoke() error {
	if err := c.beginRevoke(); err != nil {
		return err
	}
	defer metrics.Timer(metrics.CommandRevoke)()

	parent, err := tree.Resolve(c.parentLoc, c.root)
	if err != nil {
		return fmt.Errorf("revoke insert node: %w", err)
	}
	i := c.start(parent, 1)
	if i < 0 || i >= parent.Len() {
		return fmt.Errorf("%w: no child at %d under %s", ErrIllegalRevokeState, i, c.parentLoc)
	}
	if _, err := parent.RemoveAt(i); err != nil {
		return fmt.Errorf("revoke insert node: %w", err)
	}
	c.commitRevoke()
	return nil
}

// InsertForest inserts every root of a forest, with its subtree, as
// consecutive children of one parent.
type InsertForest[V any] struct {
	generation
	anchor[V]
	forest      forest.Forest[V]
	description string
}

var _ Command[string] = (*InsertForest[string])(nil)

// NewInsertForest prepares the insertion of f at p. The description is only
// used for display.
func NewInsertForest[V any](c *Counter, p Point[V], f forest.Forest[V], description string) (*InsertForest[V], error) {
	g, err := newGeneration(c)
	if err != nil {
		return nil, err
	}
	a, err := newAnchor(p)
	if err != nil {
		return nil, fmt.Errorf("insert forest: %w", err)
	}
	if description == "" {
		description = fmt.Sprintf("Insert %d nodes", f.Size())
	}
	return &InsertForest[V]{generation: g, anchor: a, forest: f, description: description}, nil
}

// Description implements Command.
func (c *InsertForest[V]) Description() string {
	return c.description
}

// Forest returns the forest this command inserts.
func (c *InsertForest[V]) Forest() forest.Forest[V] {
	return c.forest
}

// Execute materializes the forest beneath the parent and returns the parent.
func (c *InsertForest[V]) Execute() (*tree.Node[V], error) {
	if err := c.beginExecute(); err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.CommandExecute)()

	parent, err := c.resolve()
	if err != nil {
		return nil, fmt.Errorf("insert forest: %w", err)
	}
	parent.Expanded = true
	pos := c.at
	for _, r := range c.forest.Roots {
		if err := parent.Insert(pos, r.Materialize()); err != nil {
			return nil, fmt.Errorf("insert forest: %w", err)
		}
		pos++
	}
	c.commitExecute()
	debug.Log("insert forest of %d roots at %s[%d] (gen %d)", c.forest.Len(), c.parentLoc, c.at, c.revokeAllowedAt)
	return parent, nil
}

// Revoke removes exactly as many children as the forest has roots.
func (c *InsertForest[V]) Revoke() error {
	if err := c.beginRevoke(); err != nil {
		return err
	}
	defer metrics.Timer(metrics.CommandRevoke)()

	parent, err := tree.Resolve(c.parentLoc, c.root)
	if err != nil {
		return fmt.Errorf("revoke insert forest: %w", err)
	}
	n := c.forest.Len()
	start := c.start(parent, n)
	if start < 0 || start+n > parent.Len() {
		return fmt.Errorf("%w: need %d children from %d under %s, have %d",
			ErrIllegalRevokeState, n, start, c.parentLoc, parent.Len())
	}
	for i := 0; i < n; i++ {
		if _, err := parent.RemoveAt(start); err != nil {
			return fmt.Errorf("revoke insert forest: %w", err)
		}
	}
	c.commitRevoke()
	return nil
}
