package edit_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/netinv/pkg/edit"
	"github.com/vanderheijden86/netinv/pkg/testutil"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

func TestDeleteNodesRoundTrip(t *testing.T) {
	const shape = "r(a(a1,a2,a3,a4),b(b1(b11,b12)),c)"

	tests := []struct {
		name     string
		selected []string
		after    string
		first    string // parent returned by Execute
	}{
		{"single leaf", []string{"a2"}, "r(a(a1,a3,a4),b(b1(b11,b12)),c)", "a"},
		{"non adjacent siblings", []string{"a2", "a4"}, "r(a(a1,a3),b(b1(b11,b12)),c)", "a"},
		{"siblings listed backwards", []string{"a4", "a2"}, "r(a(a1,a3),b(b1(b11,b12)),c)", "a"},
		{"ancestor swallows descendant", []string{"b11", "b"}, "r(a(a1,a2,a3,a4),c)", "r"},
		{"several parents and depths", []string{"a3", "b12", "c", "a1"}, "r(a(a2,a4),b(b1(b11)))", "r"},
		{"duplicates", []string{"c", "c"}, "r(a(a1,a2,a3,a4),b(b1(b11,b12)))", "r"},
		{"whole subtree", []string{"a", "b", "c"}, "r", "r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.ParseShape(shape)
			c := edit.NewCounter()
			cmd, err := edit.NewDeleteNodes(c, testutil.MustFindAll(t, root, tt.selected...))
			if err != nil {
				t.Fatal(err)
			}

			parent, err := cmd.Execute()
			if err != nil {
				t.Fatal(err)
			}
			if parent.Label() != tt.first {
				t.Errorf("Execute returned %q, want %q", parent.Label(), tt.first)
			}
			testutil.AssertShape(t, root, tt.after)

			if err := cmd.Revoke(); err != nil {
				t.Fatal(err)
			}
			testutil.AssertShape(t, root, shape)
			testutil.AssertParentLinks(t, root)
		})
	}
}

func TestDeleteNodesKeepsNodeIdentity(t *testing.T) {
	root := testutil.ParseShape("r(a(a1),b)")
	a := testutil.MustFind(t, root, "a")
	a1 := testutil.MustFind(t, root, "a1")
	c := edit.NewCounter()

	cmd, err := edit.NewDeleteNodes(c, []*tree.Node[string]{a})
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Description() != "Delete a" {
		t.Errorf("Description = %q", cmd.Description())
	}
	if _, err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if a.Parent() != nil || a1.Parent() != a {
		t.Error("deleted subtree should stay intact while detached")
	}
	if err := cmd.Revoke(); err != nil {
		t.Fatal(err)
	}
	if root.Child(0) != a || a.Child(0) != a1 {
		t.Error("revoke should reattach the very same nodes")
	}
}

func TestDeleteNodesLocationsAscending(t *testing.T) {
	root := testutil.ParseShape("r(a(a1,a2),b(b1),c)")
	cmd, err := edit.NewDeleteNodes(edit.NewCounter(), testutil.MustFindAll(t, root, "b1", "c", "a2", "a1"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/2", "/0/0", "/0/1", "/1/0"}
	got := cmd.Locations()
	if len(got) != len(want) {
		t.Fatalf("Locations = %v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("Locations[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if cmd.Description() != "Delete 4 nodes" {
		t.Errorf("Description = %q", cmd.Description())
	}
}

func TestDeleteNodesConstructionErrors(t *testing.T) {
	root := testutil.ParseShape("r(a,b)")
	other := testutil.ParseShape("o(p)")
	a := testutil.MustFind(t, root, "a")
	c := edit.NewCounter()

	tests := []struct {
		name      string
		counter   *edit.Counter
		selection []*tree.Node[string]
		want      error
	}{
		{"nil counter", nil, []*tree.Node[string]{a}, edit.ErrNilCounter},
		{"empty", c, nil, edit.ErrEmptySelection},
		{"nil entry", c, []*tree.Node[string]{a, nil}, edit.ErrNilNode},
		{"root", c, []*tree.Node[string]{a, root}, edit.ErrDeleteRoot},
		{"two trees", c, []*tree.Node[string]{a, testutil.MustFind(t, other, "p")}, edit.ErrMixedTrees},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := edit.NewDeleteNodes(tt.counter, tt.selection)
			testutil.AssertErrorIs(t, err, tt.want)
		})
	}
	testutil.AssertShape(t, root, "r(a,b)")
}

func TestDeleteNodesExecuteIsAtomic(t *testing.T) {
	root := testutil.ParseShape("r(a,b,c)")
	c := edit.NewCounter()
	cmd, err := edit.NewDeleteNodes(c, testutil.MustFindAll(t, root, "a", "c"))
	if err != nil {
		t.Fatal(err)
	}
	// c leaves the tree before the delete runs
	if _, err := root.RemoveAt(2); err != nil {
		t.Fatal(err)
	}
	if _, err := cmd.Execute(); !errors.Is(err, tree.ErrStaleLocation) {
		t.Errorf("expected ErrStaleLocation, got %v", err)
	}
	testutil.AssertShape(t, root, "r(a,b)")
	if c.Serial() != 0 {
		t.Error("failed Execute must not advance the counter")
	}
}

func TestDeleteNodesRevokeIsAtomic(t *testing.T) {
	root := testutil.ParseShape("r(a,p(b,c))")
	c := edit.NewCounter()
	cmd, err := edit.NewDeleteNodes(c, testutil.MustFindAll(t, root, "a", "c"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertShape(t, root, "r(p(b))")

	// p leaves the tree, so c has nowhere to go back to
	p, err := root.RemoveAt(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Revoke(); !errors.Is(err, tree.ErrStaleLocation) {
		t.Fatalf("expected ErrStaleLocation, got %v", err)
	}
	testutil.AssertShape(t, root, "r")
	if c.Serial() != 1 {
		t.Errorf("failed Revoke must not rewind the counter, serial = %d", c.Serial())
	}

	if err := root.Append(p); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Revoke(); err != nil {
		t.Fatalf("retried Revoke: %v", err)
	}
	testutil.AssertShape(t, root, "r(a,p(b,c))")
}

func TestDeleteAfterInsertUndoesInOrder(t *testing.T) {
	root := testutil.ParseShape("r(a,b)")
	c := edit.NewCounter()

	ins := mustInsert(t, c, root, 1, "x")
	x, err := ins.Execute()
	if err != nil {
		t.Fatal(err)
	}
	del, err := edit.NewDeleteNodes(c, []*tree.Node[string]{x, testutil.MustFind(t, root, "a")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := del.Execute(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertShape(t, root, "r(b)")

	if err := ins.Revoke(); !errors.Is(err, edit.ErrOutOfOrderUndo) {
		t.Errorf("expected ErrOutOfOrderUndo, got %v", err)
	}
	if err := del.Revoke(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertShape(t, root, "r(a,x,b)")
	if err := ins.Revoke(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertShape(t, root, "r(a,b)")
}
