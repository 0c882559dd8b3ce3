package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// AssertShape verifies the tree renders to want in Shape notation.
func AssertShape[V any](t testing.TB, root *tree.Node[V], want string) {
	t.Helper()
	if got := Shape(root); got != want {
		t.Errorf("shape mismatch:\n got: %s\nwant: %s", got, want)
	}
}

// AssertParentLinks verifies every child points back at its parent and the
// root has no parent.
func AssertParentLinks[V any](t testing.TB, root *tree.Node[V]) {
	t.Helper()
	if root.Parent() != nil {
		t.Errorf("root %q has parent %q", root.Label(), root.Parent().Label())
	}
	root.Walk(func(n *tree.Node[V], _ int) bool {
		for i, c := range n.Children() {
			if c.Parent() != n {
				t.Errorf("child %d (%q) of %q has wrong parent", i, c.Label(), n.Label())
			}
		}
		return true
	})
}

// AssertSameTree verifies both trees have the same shape and equal values
// at every position.
func AssertSameTree[V any](t testing.TB, got, want *tree.Node[V], eq func(a, b V) bool) {
	t.Helper()
	var walk func(g, w *tree.Node[V], loc tree.Location) bool
	walk = func(g, w *tree.Node[V], loc tree.Location) bool {
		if !eq(g.Value(), w.Value()) {
			t.Errorf("value at %s: got %q, want %q", loc, g.Label(), w.Label())
			return false
		}
		if g.Len() != w.Len() {
			t.Errorf("children at %s: got %d, want %d", loc, g.Len(), w.Len())
			return false
		}
		for i := range g.Children() {
			if !walk(g.Child(i), w.Child(i), loc.Child(i)) {
				return false
			}
		}
		return true
	}
	walk(got, want, tree.Location{})
}

// AssertChildren verifies the labels of n's children, in order.
func AssertChildren[V any](t testing.TB, n *tree.Node[V], labels ...string) {
	t.Helper()
	if n.Len() != len(labels) {
		t.Errorf("%q has %d children, want %d (%v)", n.Label(), n.Len(), len(labels), labels)
		return
	}
	for i, c := range n.Children() {
		if c.Label() != labels[i] {
			t.Errorf("child %d of %q: got %q, want %q", i, n.Label(), c.Label(), labels[i])
		}
	}
}

// AssertErrorIs fails unless errors.Is(err, target).
func AssertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("expected error %v, got %v", target, err)
	}
}

// MustFind returns the node labelled name or stops the test.
func MustFind[V any](t testing.TB, root *tree.Node[V], name string) *tree.Node[V] {
	t.Helper()
	n := Find(root, name)
	if n == nil {
		t.Fatalf("node %q not found in %s", name, Shape(root))
	}
	return n
}

// MustFindAll resolves several names with MustFind.
func MustFindAll[V any](t testing.TB, root *tree.Node[V], names ...string) []*tree.Node[V] {
	t.Helper()
	out := make([]*tree.Node[V], len(names))
	for i, name := range names {
		out[i] = MustFind(t, root, name)
	}
	return out
}

// WriteInventoryFile writes the tree as a YAML inventory document into dir
// and returns the file path.
func WriteInventoryFile(t testing.TB, dir, name string, root *tree.Node[inventory.Item]) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	data, err := inventory.EncodeYAML(inventory.FromTree(root))
	if err != nil {
		t.Fatalf("failed to encode inventory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write inventory file: %v", err)
	}
	return path
}
