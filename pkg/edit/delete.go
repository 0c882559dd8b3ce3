package edit

import (
	"fmt"
	"slices"

	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// deletion pairs a node with the location it had before the delete.
type deletion[V any] struct {
	loc  tree.Location
	node *tree.Node[V]
}

// DeleteNodes removes a multi-node selection, possibly spanning several
// parents and depths.
type DeleteNodes[V any] struct {
	generation
	root    *tree.Node[V]
	targets []deletion[V] // ascending by tree.CompareLocations
}

var _ Command[string] = (*DeleteNodes[string])(nil)

// NewDeleteNodes validates the selection and captures where every selected
// node sits. Nodes whose ancestor is also selected are dropped: deleting the
// ancestor already takes them along.
func NewDeleteNodes[V any](c *Counter, selection []*tree.Node[V]) (*DeleteNodes[V], error) {
	g, err := newGeneration(c)
	if err != nil {
		return nil, err
	}
	if len(selection) == 0 {
		return nil, ErrEmptySelection
	}
	for i, n := range selection {
		if n == nil {
			return nil, fmt.Errorf("%w at selection index %d", ErrNilNode, i)
		}
	}

	root := selection[0].Root()
	selected := make(map[*tree.Node[V]]bool, len(selection))
	for _, n := range selection {
		if n.Parent() == nil {
			return nil, fmt.Errorf("%w: %q", ErrDeleteRoot, n.Label())
		}
		if n.Root() != root {
			return nil, fmt.Errorf("%w: %q", ErrMixedTrees, n.Label())
		}
		selected[n] = true
	}

	targets := make([]deletion[V], 0, len(selected))
	seen := make(map[*tree.Node[V]]bool, len(selected))
	for _, n := range selection {
		if seen[n] || hasSelectedAncestor(n, selected) {
			continue
		}
		seen[n] = true
		loc, err := tree.LocationOf(n, root)
		if err != nil {
			return nil, fmt.Errorf("delete nodes: %w", err)
		}
		targets = append(targets, deletion[V]{loc: loc, node: n})
	}
	slices.SortFunc(targets, func(a, b deletion[V]) int {
		return tree.CompareLocations(a.loc, b.loc)
	})

	return &DeleteNodes[V]{generation: g, root: root, targets: targets}, nil
}

func hasSelectedAncestor[V any](n *tree.Node[V], selected map[*tree.Node[V]]bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if selected[p] {
			return true
		}
	}
	return false
}

// Description implements Command.
func (c *DeleteNodes[V]) Description() string {
	if len(c.targets) == 1 {
		return "Delete " + c.targets[0].node.Label()
	}
	return fmt.Sprintf("Delete %d nodes", len(c.targets))
}

// Locations returns the captured locations of the nodes that will actually
// be detached, in ascending order.
func (c *DeleteNodes[V]) Locations() []tree.Location {
	out := make([]tree.Location, len(c.targets))
	for i, t := range c.targets {
		out[i] = t.loc.Clone()
	}
	return out
}

// Execute detaches every target from its live parent and returns the parent
// of the first one.
func (c *DeleteNodes[V]) Execute() (*tree.Node[V], error) {
	if err := c.beginExecute(); err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.CommandExecute)()

	// Check everything before touching the tree so a failure leaves it intact.
	for _, t := range c.targets {
		if t.node.Parent() == nil || t.node.Root() != c.root {
			return nil, fmt.Errorf("delete nodes: %w: %q is no longer in the tree",
				tree.ErrStaleLocation, t.node.Label())
		}
	}
	first := c.targets[0].node.Parent()
	for _, t := range c.targets {
		if _, err := t.node.Detach(); err != nil {
			return nil, fmt.Errorf("delete nodes: %w", err)
		}
	}
	c.commitExecute()
	debug.Log("delete %d nodes (gen %d)", len(c.targets), c.revokeAllowedAt)
	return first, nil
}

// Revoke puts every node back at its original index. Reinsertion runs in
// ascending location order: shallower positions first, and within a parent
// from the lowest index to the highest, so every stored index is valid at
// the moment it is used.
func (c *DeleteNodes[V]) Revoke() error {
	if err := c.beginRevoke(); err != nil {
		return err
	}
	defer metrics.Timer(metrics.CommandRevoke)()

	// Parent locations only become valid as earlier targets go back in, so
	// a failure part way undoes the reinsertions made so far.
	for i, t := range c.targets {
		err := c.reinsert(t)
		if err == nil {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			_, _ = c.targets[j].node.Detach()
		}
		return fmt.Errorf("revoke delete nodes: %w", err)
	}
	c.commitRevoke()
	return nil
}

func (c *DeleteNodes[V]) reinsert(t deletion[V]) error {
	parent, err := tree.Resolve(t.loc.Parent(), c.root)
	if err != nil {
		return err
	}
	if err := parent.Insert(t.loc.Last(), t.node); err != nil {
		return fmt.Errorf("%w: %w", ErrIllegalRevokeState, err)
	}
	return nil
}
