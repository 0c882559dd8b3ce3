package tree_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/netinv/pkg/testutil"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

func TestInsertKeepsOrderAndParent(t *testing.T) {
	root := tree.New("r")
	a, b, c := tree.New("a"), tree.New("b"), tree.New("c")

	if err := root.Append(a); err != nil {
		t.Fatal(err)
	}
	if err := root.Append(c); err != nil {
		t.Fatal(err)
	}
	if err := root.Insert(1, b); err != nil {
		t.Fatal(err)
	}

	testutil.AssertChildren(t, root, "a", "b", "c")
	testutil.AssertParentLinks(t, root)
	if b.Parent() != root {
		t.Error("b should point back at root")
	}
}

func TestInsertRejectsMisuse(t *testing.T) {
	root := testutil.ParseShape("r(a(a1))")
	a := testutil.MustFind(t, root, "a")
	a1 := testutil.MustFind(t, root, "a1")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"attached child", root.Insert(0, a1), tree.ErrAlreadyAttached},
		{"index past end", root.Insert(5, tree.New("x")), tree.ErrIndexOutOfRange},
		{"negative index", root.Insert(-1, tree.New("x")), tree.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertErrorIs(t, tt.err, tt.want)
		})
	}

	detached := tree.New("d")
	if err := detached.Append(root); err != nil {
		// root is detached and not an ancestor of d, so this is legal
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := root.Detach(); err != nil {
		t.Fatal(err)
	}
	// inserting an ancestor beneath its own descendant is a cycle
	if _, err := a.Detach(); err != nil {
		t.Fatal(err)
	}
	if err := a1.Append(a); !errors.Is(err, tree.ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestRemoveAtAndDetach(t *testing.T) {
	root := testutil.ParseShape("r(a,b,c,d)")
	b, err := root.RemoveAt(1)
	if err != nil {
		t.Fatal(err)
	}
	if b.Label() != "b" || b.Parent() != nil {
		t.Errorf("removed %q with parent %v", b.Label(), b.Parent())
	}
	testutil.AssertChildren(t, root, "a", "c", "d")

	d := testutil.MustFind(t, root, "d")
	idx, err := d.Detach()
	if err != nil {
		t.Fatal(err)
	}
	if idx != 2 {
		t.Errorf("Detach index = %d, want 2", idx)
	}
	testutil.AssertChildren(t, root, "a", "c")

	if _, err := d.Detach(); !errors.Is(err, tree.ErrNotAttached) {
		t.Errorf("expected ErrNotAttached, got %v", err)
	}
	if _, err := root.RemoveAt(2); !errors.Is(err, tree.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestNavigationHelpers(t *testing.T) {
	root := testutil.ParseShape("r(a(a1(a11)),b)")
	a := testutil.MustFind(t, root, "a")
	a11 := testutil.MustFind(t, root, "a11")
	b := testutil.MustFind(t, root, "b")

	if a11.Root() != root {
		t.Error("Root() should reach r")
	}
	if a11.Depth() != 3 {
		t.Errorf("Depth = %d, want 3", a11.Depth())
	}
	if !a.IsAncestorOf(a11) || a.IsAncestorOf(b) || a.IsAncestorOf(a) {
		t.Error("IsAncestorOf gave wrong answers")
	}
	if !root.IsRoot() || a.IsRoot() || !a11.IsLeaf() {
		t.Error("IsRoot/IsLeaf gave wrong answers")
	}
	if root.Count() != 5 {
		t.Errorf("Count = %d, want 5", root.Count())
	}
	if root.Child(7) != nil || root.Child(-1) != nil {
		t.Error("Child out of range should be nil")
	}
}

func TestWalkCanPrune(t *testing.T) {
	root := testutil.ParseShape("r(a(a1,a2),b(b1))")
	var seen []string
	root.Walk(func(n *tree.Node[string], depth int) bool {
		seen = append(seen, n.Label())
		return n.Label() != "a"
	})
	want := []string{"r", "a", "b", "b1"}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visit %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	root := testutil.ParseShape("r(a(a1),b)")
	a := testutil.MustFind(t, root, "a")
	a.Expanded = true

	c := a.Clone()
	if c.Parent() != nil {
		t.Error("clone should be detached")
	}
	testutil.AssertShape(t, c, "a(a1)")
	testutil.AssertParentLinks(t, c)
	if !c.Expanded {
		t.Error("clone should keep the expanded hint")
	}
	if c.Child(0) == a.Child(0) {
		t.Error("clone shares child nodes")
	}
}

type labelled struct{ name string }

func (l labelled) String() string { return "<" + l.name + ">" }

func TestLabelFollowsValue(t *testing.T) {
	n := tree.New(labelled{"x"})
	if n.Label() != "<x>" {
		t.Errorf("label = %q", n.Label())
	}
	n.SetValue(labelled{"y"})
	if n.Label() != "<y>" {
		t.Errorf("label after SetValue = %q", n.Label())
	}
	if got := tree.New(42).Label(); got != "42" {
		t.Errorf("int label = %q", got)
	}
}
