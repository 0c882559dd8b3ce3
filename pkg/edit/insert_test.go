package edit_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/netinv/pkg/edit"
	"github.com/vanderheijden86/netinv/pkg/forest"
	"github.com/vanderheijden86/netinv/pkg/testutil"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

func mustInsert(t *testing.T, c *edit.Counter, parent *tree.Node[string], index int, v string) *edit.InsertNode[string] {
	t.Helper()
	cmd, err := edit.NewInsertNode(c, edit.At(parent, index), v)
	if err != nil {
		t.Fatalf("NewInsertNode(%q): %v", v, err)
	}
	return cmd
}

func TestInsertNodeAtIndexAndAppend(t *testing.T) {
	root := testutil.ParseShape("r(a,b)")
	c := edit.NewCounter()

	tests := []struct {
		index int
		value string
		want  string
	}{
		{0, "x", "r(x,a,b)"},
		{2, "y", "r(x,a,y,b)"},
		{edit.AppendIndex, "z", "r(x,a,y,b,z)"},
		{99, "w", "r(x,a,y,b,z,w)"},
	}
	for _, tt := range tests {
		cmd := mustInsert(t, c, root, tt.index, tt.value)
		n, err := cmd.Execute()
		if err != nil {
			t.Fatalf("Execute(%q): %v", tt.value, err)
		}
		if n.Label() != tt.value || n.Parent() != root {
			t.Errorf("Execute returned %q under %v", n.Label(), n.Parent())
		}
		testutil.AssertShape(t, root, tt.want)
	}
	if !root.Expanded {
		t.Error("insert should expand the parent")
	}
	if c.Serial() != 4 {
		t.Errorf("Serial = %d, want 4", c.Serial())
	}
}

// TestInsertNodeRevokeInReverse checks that N inserts revoked newest first
// restore the original tree and the counter.
func TestInsertNodeRevokeInReverse(t *testing.T) {
	root := testutil.ParseShape("r(a(a1),b)")
	a := testutil.MustFind(t, root, "a")
	c := edit.NewCounter()

	cmds := []*edit.InsertNode[string]{
		mustInsert(t, c, root, 1, "x"),
		mustInsert(t, c, a, edit.AppendIndex, "y"),
		mustInsert(t, c, a, 0, "z"),
		mustInsert(t, c, root, edit.AppendIndex, "w"),
	}
	for _, cmd := range cmds {
		if _, err := cmd.Execute(); err != nil {
			t.Fatal(err)
		}
	}
	testutil.AssertShape(t, root, "r(a(z,a1,y),x,b,w)")

	for i := len(cmds) - 1; i >= 0; i-- {
		if err := cmds[i].Revoke(); err != nil {
			t.Fatalf("Revoke %d: %v", i, err)
		}
		if cmds[i].Executed() {
			t.Errorf("command %d still reports executed", i)
		}
	}
	testutil.AssertShape(t, root, "r(a(a1),b)")
	testutil.AssertParentLinks(t, root)
	if c.Serial() != 0 {
		t.Errorf("Serial = %d after full undo, want 0", c.Serial())
	}
}

func TestInsertNodeOrdering(t *testing.T) {
	root := testutil.ParseShape("r")
	c := edit.NewCounter()
	first := mustInsert(t, c, root, 0, "x")
	second := mustInsert(t, c, root, 0, "y")

	if _, err := first.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Execute(); !errors.Is(err, edit.ErrAlreadyExecuted) {
		t.Errorf("second Execute: expected ErrAlreadyExecuted, got %v", err)
	}
	if _, err := second.Execute(); err != nil {
		t.Fatal(err)
	}

	// first is buried under second
	if err := first.Revoke(); !errors.Is(err, edit.ErrOutOfOrderUndo) {
		t.Errorf("out of order Revoke: expected ErrOutOfOrderUndo, got %v", err)
	}
	testutil.AssertShape(t, root, "r(y,x)")

	if err := second.Revoke(); err != nil {
		t.Fatal(err)
	}
	if err := second.Revoke(); !errors.Is(err, edit.ErrOutOfOrderUndo) {
		t.Errorf("double Revoke: expected ErrOutOfOrderUndo, got %v", err)
	}
	if err := first.Revoke(); err != nil {
		t.Fatalf("first should be revocable once second is gone: %v", err)
	}
	testutil.AssertShape(t, root, "r")

	unexecuted := mustInsert(t, c, root, 0, "z")
	if err := unexecuted.Revoke(); !errors.Is(err, edit.ErrOutOfOrderUndo) {
		t.Errorf("Revoke before Execute: expected ErrOutOfOrderUndo, got %v", err)
	}
}

func TestInsertNodeReexecuteAfterRevoke(t *testing.T) {
	root := testutil.ParseShape("r(a)")
	c := edit.NewCounter()
	cmd := mustInsert(t, c, root, 0, "x")

	for i := 0; i < 3; i++ {
		if _, err := cmd.Execute(); err != nil {
			t.Fatalf("round %d Execute: %v", i, err)
		}
		testutil.AssertShape(t, root, "r(x,a)")
		if err := cmd.Revoke(); err != nil {
			t.Fatalf("round %d Revoke: %v", i, err)
		}
		testutil.AssertShape(t, root, "r(a)")
	}
}

func TestInsertNodeConstruction(t *testing.T) {
	if _, err := edit.NewInsertNode(nil, edit.At(tree.New("r"), 0), "x"); !errors.Is(err, edit.ErrNilCounter) {
		t.Errorf("expected ErrNilCounter, got %v", err)
	}
	if _, err := edit.NewInsertNode[string](edit.NewCounter(), edit.At[string](nil, 0), "x"); !errors.Is(err, edit.ErrNilNode) {
		t.Errorf("expected ErrNilNode, got %v", err)
	}

	cmd := mustInsert(t, edit.NewCounter(), tree.New("r"), 0, "web")
	if cmd.Description() != "Insert web" {
		t.Errorf("Description = %q", cmd.Description())
	}
}

func TestInsertNodeStaleParent(t *testing.T) {
	root := testutil.ParseShape("r(a,b(b1))")
	b1 := testutil.MustFind(t, root, "b1")
	c := edit.NewCounter()
	cmd := mustInsert(t, c, b1, 0, "x")

	// /1/0 disappears before the command runs
	if _, err := testutil.MustFind(t, root, "b").Detach(); err != nil {
		t.Fatal(err)
	}
	if _, err := cmd.Execute(); !errors.Is(err, tree.ErrStaleLocation) {
		t.Errorf("expected ErrStaleLocation, got %v", err)
	}
	if cmd.Executed() || c.Serial() != 0 {
		t.Error("failed Execute must not advance the counter")
	}
}

func TestInsertNodeRevokeIllegalState(t *testing.T) {
	root := testutil.ParseShape("r(a)")
	c := edit.NewCounter()
	cmd := mustInsert(t, c, root, edit.AppendIndex, "x")
	if _, err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	// someone else empties the parent behind the history's back
	for root.Len() > 0 {
		if _, err := root.RemoveAt(0); err != nil {
			t.Fatal(err)
		}
	}
	if err := cmd.Revoke(); !errors.Is(err, edit.ErrIllegalRevokeState) {
		t.Errorf("expected ErrIllegalRevokeState, got %v", err)
	}
}

func sampleForest() forest.Forest[string] {
	src := testutil.ParseShape("s(p(p1,p2),q)")
	return forest.FromNodes(src.Children())
}

func TestInsertForestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"at index", 1, "r(a,p(p1,p2),q,b)"},
		{"at front", 0, "r(p(p1,p2),q,a,b)"},
		{"append", edit.AppendIndex, "r(a,b,p(p1,p2),q)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.ParseShape("r(a,b)")
			c := edit.NewCounter()
			cmd, err := edit.NewInsertForest(c, edit.At(root, tt.index), sampleForest(), "")
			if err != nil {
				t.Fatal(err)
			}
			parent, err := cmd.Execute()
			if err != nil {
				t.Fatal(err)
			}
			if parent != root {
				t.Errorf("Execute returned %q, want the parent", parent.Label())
			}
			testutil.AssertShape(t, root, tt.want)
			testutil.AssertParentLinks(t, root)

			if err := cmd.Revoke(); err != nil {
				t.Fatal(err)
			}
			testutil.AssertShape(t, root, "r(a,b)")
		})
	}
}

func TestInsertForestPastesIndependentCopies(t *testing.T) {
	root := testutil.ParseShape("r(a,b)")
	c := edit.NewCounter()
	f := sampleForest()

	for _, target := range []string{"a", "b"} {
		cmd, err := edit.NewInsertForest(c, edit.At(testutil.MustFind(t, root, target), 0), f, "paste")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := cmd.Execute(); err != nil {
			t.Fatal(err)
		}
	}
	testutil.AssertShape(t, root, "r(a(p(p1,p2),q),b(p(p1,p2),q))")
	a := testutil.MustFind(t, root, "a")
	b := testutil.MustFind(t, root, "b")
	if a.Child(0) == b.Child(0) {
		t.Error("pasted subtrees share nodes")
	}
}

func TestInsertForestDescriptionAndIllegalState(t *testing.T) {
	root := testutil.ParseShape("r")
	c := edit.NewCounter()
	cmd, err := edit.NewInsertForest(c, edit.At(root, 0), sampleForest(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Description() != "Insert 4 nodes" {
		t.Errorf("Description = %q", cmd.Description())
	}
	if cmd.Forest().Len() != 2 {
		t.Errorf("Forest().Len() = %d", cmd.Forest().Len())
	}
	if _, err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := root.RemoveAt(1); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Revoke(); !errors.Is(err, edit.ErrIllegalRevokeState) {
		t.Errorf("expected ErrIllegalRevokeState, got %v", err)
	}
	if !cmd.Executed() {
		t.Error("failed Revoke must leave the command executed")
	}
}
