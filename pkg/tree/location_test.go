package tree_test

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/netinv/pkg/testutil"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

func TestLocationOf(t *testing.T) {
	root := testutil.ParseShape("r(a(a1,a2(x)),b)")

	tests := []struct {
		name string
		want string
	}{
		{"r", "/"},
		{"a", "/0"},
		{"b", "/1"},
		{"a2", "/0/1"},
		{"x", "/0/1/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := tree.LocationOf(testutil.MustFind(t, root, tt.name), root)
			if err != nil {
				t.Fatal(err)
			}
			if loc.String() != tt.want {
				t.Errorf("LocationOf(%s) = %s, want %s", tt.name, loc, tt.want)
			}
		})
	}
}

func TestLocationOfRelativeToSubtree(t *testing.T) {
	root := testutil.ParseShape("r(a(a1,a2(x)),b)")
	a := testutil.MustFind(t, root, "a")
	x := testutil.MustFind(t, root, "x")

	loc, err := tree.LocationOf(x, a)
	if err != nil {
		t.Fatal(err)
	}
	if loc.String() != "/1/0" {
		t.Errorf("got %s, want /1/0", loc)
	}
}

func TestLocationOfNotDescendant(t *testing.T) {
	root := testutil.ParseShape("r(a,b)")
	other := testutil.ParseShape("o(p)")

	_, err := tree.LocationOf(testutil.MustFind(t, other, "p"), root)
	if !errors.Is(err, tree.ErrPrecomposition) {
		t.Errorf("expected ErrPrecomposition, got %v", err)
	}

	// a sibling subtree is not a valid root either
	_, err = tree.LocationOf(testutil.MustFind(t, root, "a"), testutil.MustFind(t, root, "b"))
	if !errors.Is(err, tree.ErrPrecomposition) {
		t.Errorf("expected ErrPrecomposition, got %v", err)
	}
}

func TestResolveStale(t *testing.T) {
	root := testutil.ParseShape("r(a(a1,a2),b)")
	loc := tree.Location{0, 1}

	n, err := tree.Resolve(loc, root)
	if err != nil || n.Label() != "a2" {
		t.Fatalf("Resolve(%s) = %v, %v", loc, n, err)
	}

	a := testutil.MustFind(t, root, "a")
	if _, err := a.RemoveAt(0); err != nil {
		t.Fatal(err)
	}
	if _, err := a.RemoveAt(0); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Resolve(loc, root); !errors.Is(err, tree.ErrStaleLocation) {
		t.Errorf("expected ErrStaleLocation, got %v", err)
	}
	if _, err := tree.Resolve(tree.Location{-1}, root); !errors.Is(err, tree.ErrStaleLocation) {
		t.Errorf("expected ErrStaleLocation for negative index, got %v", err)
	}
}

func TestLocationHelpers(t *testing.T) {
	loc := tree.Location{2, 0, 5}
	if got := loc.Parent().String(); got != "/2/0" {
		t.Errorf("Parent = %s", got)
	}
	if loc.Last() != 5 {
		t.Errorf("Last = %d", loc.Last())
	}
	if (tree.Location{}).Last() != -1 || !(tree.Location{}).IsRoot() {
		t.Error("root location helpers wrong")
	}
	if !(tree.Location{}).Parent().IsRoot() {
		t.Error("parent of root should be root")
	}
	child := loc.Child(1)
	if child.String() != "/2/0/5/1" || loc.String() != "/2/0/5" {
		t.Errorf("Child aliased its receiver: %s, %s", child, loc)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/", "/", false},
		{"", "/", false},
		{"/0/2/1", "/0/2/1", false},
		{"0/2", "/0/2", false},
		{" /3/ ", "/3", false},
		{"/a", "", true},
		{"/-1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := tree.ParseLocation(tt.in)
			if tt.wantErr {
				if !errors.Is(err, tree.ErrInvalidLocation) {
					t.Errorf("expected ErrInvalidLocation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if loc.String() != tt.want {
				t.Errorf("got %s, want %s", loc, tt.want)
			}
		})
	}
}

func TestCompareLocationsDepthFirst(t *testing.T) {
	locs := []tree.Location{
		{1, 0},
		{3},
		{0, 2},
		{},
		{1},
		{0, 1, 4},
		{0, 1},
	}
	tree.SortLocations(locs)

	want := []string{"/", "/1", "/3", "/0/1", "/0/2", "/1/0", "/0/1/4"}
	for i, l := range locs {
		if l.String() != want[i] {
			t.Errorf("position %d: got %s, want %s", i, l, want[i])
		}
	}
}

// TestResolveInvertsLocationOf checks Resolve(LocationOf(h, root), root) == h
// for every node of random trees.
func TestResolveInvertsLocationOf(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := testutil.DefaultConfig()
		cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(t, "seed")
		root := testutil.New(cfg).Random(rapid.IntRange(1, 60).Draw(t, "size"))

		for _, n := range testutil.Nodes(root) {
			loc, err := tree.LocationOf(n, root)
			if err != nil {
				t.Fatalf("LocationOf(%s): %v", n.Label(), err)
			}
			got, err := tree.Resolve(loc, root)
			if err != nil {
				t.Fatalf("Resolve(%s): %v", loc, err)
			}
			if got != n {
				t.Fatalf("Resolve(LocationOf(%s)) = %s", n.Label(), got.Label())
			}
			if len(loc) != n.Depth() {
				t.Fatalf("location %s has length %d, depth is %d", loc, len(loc), n.Depth())
			}
		}
	})
}
