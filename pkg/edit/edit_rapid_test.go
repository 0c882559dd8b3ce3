package edit_test

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/netinv/pkg/edit"
	"github.com/vanderheijden86/netinv/pkg/forest"
	"github.com/vanderheijden86/netinv/pkg/testutil"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// editStateMachine drives random commands through a History and checks that
// every undo restores exactly the tree that existed before the command.
type editStateMachine struct {
	// Model state
	snapshots []string // tree shape before each live command

	// SUT state
	root    *tree.Node[string]
	counter *edit.Counter
	history *edit.History[string]
	gen     *testutil.Generator
	next    int
}

func (m *editStateMachine) Init(t *rapid.T) {
	cfg := testutil.DefaultConfig()
	cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(t, "seed")
	m.gen = testutil.New(cfg)
	m.root = m.gen.Random(rapid.IntRange(1, 25).Draw(t, "size"))
	m.counter = edit.NewCounter()
	m.history = edit.NewHistory[string](1000)
}

func (m *editStateMachine) value() string {
	m.next++
	return fmt.Sprintf("v%d", m.next)
}

func (m *editStateMachine) anyNode(t *rapid.T, label string) *tree.Node[string] {
	nodes := testutil.Nodes(m.root)
	return nodes[rapid.IntRange(0, len(nodes)-1).Draw(t, label)]
}

func (m *editStateMachine) do(t *rapid.T, cmd edit.Command[string]) {
	before := testutil.Shape(m.root)
	if _, err := m.history.Do(cmd); err != nil {
		t.Fatalf("%s: %v", cmd.Description(), err)
	}
	m.snapshots = append(m.snapshots, before)
}

func (m *editStateMachine) Insert(t *rapid.T) {
	parent := m.anyNode(t, "parent")
	index := rapid.IntRange(-1, parent.Len()).Draw(t, "index")
	cmd, err := edit.NewInsertNode(m.counter, edit.At(parent, index), m.value())
	if err != nil {
		t.Fatal(err)
	}
	m.do(t, cmd)
}

func (m *editStateMachine) Delete(t *rapid.T) {
	if m.root.Len() == 0 {
		t.Skip("nothing but the root")
	}
	k := rapid.IntRange(1, 6).Draw(t, "k")
	cfg := testutil.DefaultConfig()
	cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(t, "pickSeed")
	cmd, err := edit.NewDeleteNodes(m.counter, testutil.New(cfg).Pick(m.root, k))
	if err != nil {
		t.Fatal(err)
	}
	m.do(t, cmd)
}

func (m *editStateMachine) Modify(t *rapid.T) {
	cmd, err := edit.NewModifyNode(m.counter, m.anyNode(t, "target"), m.value())
	if err != nil {
		t.Fatal(err)
	}
	m.do(t, cmd)
}

func (m *editStateMachine) Paste(t *rapid.T) {
	if m.root.Len() == 0 {
		t.Skip("nothing to copy")
	}
	cfg := testutil.DefaultConfig()
	cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(t, "copySeed")
	f := forest.Build(testutil.New(cfg).Pick(m.root, rapid.IntRange(1, 4).Draw(t, "k")))
	parent := m.anyNode(t, "parent")
	index := rapid.IntRange(-1, parent.Len()).Draw(t, "index")
	cmd, err := edit.NewInsertForest(m.counter, edit.At(parent, index), f, "")
	if err != nil {
		t.Fatal(err)
	}
	m.do(t, cmd)
}

func (m *editStateMachine) Undo(t *rapid.T) {
	if !m.history.CanUndo() {
		t.Skip("history empty")
	}
	if _, err := m.history.Undo(); err != nil {
		t.Fatal(err)
	}
	want := m.snapshots[len(m.snapshots)-1]
	m.snapshots = m.snapshots[:len(m.snapshots)-1]
	if got := testutil.Shape(m.root); got != want {
		t.Fatalf("undo did not restore the tree:\n got: %s\nwant: %s", got, want)
	}
}

func (m *editStateMachine) Check(t *rapid.T) {
	if m.root.Parent() != nil {
		t.Fatal("root gained a parent")
	}
	var bad string
	m.root.Walk(func(n *tree.Node[string], _ int) bool {
		for _, c := range n.Children() {
			if c.Parent() != n {
				bad = c.Label()
				return false
			}
		}
		return true
	})
	if bad != "" {
		t.Fatalf("broken parent link at %s", bad)
	}
	if int64(m.history.Len()) != m.counter.Serial() {
		t.Fatalf("history holds %d commands, counter at %d", m.history.Len(), m.counter.Serial())
	}
}

func TestEditProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := &editStateMachine{}
		m.Init(t)

		t.Repeat(map[string]func(*rapid.T){
			"Insert": m.Insert,
			"Delete": m.Delete,
			"Modify": m.Modify,
			"Paste":  m.Paste,
			"Undo":   m.Undo,
			"":       m.Check,
		})

		// unwinding everything gets back to the generated tree
		for m.history.CanUndo() {
			if _, err := m.history.Undo(); err != nil {
				t.Fatal(err)
			}
		}
		if len(m.snapshots) > 0 && testutil.Shape(m.root) != m.snapshots[0] {
			t.Fatalf("full undo ended at %s, want %s", testutil.Shape(m.root), m.snapshots[0])
		}
	})
}

// TestDeleteRevokeRestoresAnySelection checks that reinsertion in ascending
// location order puts every deleted node back where it was, for arbitrary
// selections spanning several parents and depths.
func TestDeleteRevokeRestoresAnySelection(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := testutil.DefaultConfig()
		cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(t, "seed")
		gen := testutil.New(cfg)
		root := gen.Random(rapid.IntRange(2, 50).Draw(t, "size"))
		before := testutil.Shape(root)

		selection := gen.Pick(root, rapid.IntRange(1, 12).Draw(t, "k"))
		c := edit.NewCounter()
		cmd, err := edit.NewDeleteNodes(c, selection)
		if err != nil {
			t.Fatal(err)
		}

		locs := cmd.Locations()
		for i := 1; i < len(locs); i++ {
			if tree.CompareLocations(locs[i-1], locs[i]) >= 0 {
				t.Fatalf("locations not ascending: %s then %s", locs[i-1], locs[i])
			}
		}

		if _, err := cmd.Execute(); err != nil {
			t.Fatal(err)
		}
		for _, n := range selection {
			if n.Root() == root {
				t.Fatalf("%s still in the tree after delete", n.Label())
			}
		}
		if err := cmd.Revoke(); err != nil {
			t.Fatal(err)
		}
		if got := testutil.Shape(root); got != before {
			t.Fatalf("revoke did not restore the tree:\n got: %s\nwant: %s", got, before)
		}
		if c.Serial() != 0 {
			t.Fatalf("counter at %d after revoke", c.Serial())
		}
	})
}
