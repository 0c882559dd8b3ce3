package edit

import (
	"fmt"

	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// ModifyNode replaces the payload of one node in place.
type ModifyNode[V any] struct {
	generation
	root     *tree.Node[V]
	loc      tree.Location
	oldValue V
	newValue V
}

var _ Command[string] = (*ModifyNode[string])(nil)

// NewModifyNode prepares replacing n's value with value.
func NewModifyNode[V any](c *Counter, n *tree.Node[V], value V) (*ModifyNode[V], error) {
	g, err := newGeneration(c)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNilNode
	}
	root := n.Root()
	loc, err := tree.LocationOf(n, root)
	if err != nil {
		return nil, fmt.Errorf("modify node: %w", err)
	}
	return &ModifyNode[V]{
		generation: g,
		root:       root,
		loc:        loc,
		oldValue:   n.Value(),
		newValue:   value,
	}, nil
}

// Description implements Command.
func (c *ModifyNode[V]) Description() string {
	return "Modify " + tree.LabelOf(c.oldValue)
}

// OldValue returns the value the node held before Execute.
func (c *ModifyNode[V]) OldValue() V {
	return c.oldValue
}

// Execute stores the new value and returns the node.
func (c *ModifyNode[V]) Execute() (*tree.Node[V], error) {
	if err := c.beginExecute(); err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.CommandExecute)()

	n, err := tree.Resolve(c.loc, c.root)
	if err != nil {
		return nil, fmt.Errorf("modify node: %w", err)
	}
	n.SetValue(c.newValue)
	c.commitExecute()
	debug.Log("modify %s -> %q (gen %d)", c.loc, n.Label(), c.revokeAllowedAt)
	return n, nil
}

// Revoke restores the previous value.
func (c *ModifyNode[V]) Revoke() error {
	if err := c.beginRevoke(); err != nil {
		return err
	}
	defer metrics.Timer(metrics.CommandRevoke)()

	n, err := tree.Resolve(c.loc, c.root)
	if err != nil {
		return fmt.Errorf("revoke modify node: %w", err)
	}
	n.SetValue(c.oldValue)
	c.commitRevoke()
	return nil
}
