// Package testutil provides tree fixtures and assertions for netinv tests.
// All generators are deterministic for a given seed.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// GeneratorConfig controls random tree generation.
type GeneratorConfig struct {
	Seed        int64  // Random seed (0 = 42)
	NamePrefix  string // Prefix for generated node names (default: "n")
	MaxChildren int    // Upper bound on children per node (0 = unbounded)
	MaxDepth    int    // Upper bound on node depth (0 = unbounded)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		NamePrefix:  "n",
		MaxChildren: 4,
		MaxDepth:    5,
	}
}

// Generator creates test trees.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.NamePrefix == "" {
		cfg.NamePrefix = "n"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Topologies
// ============================================================================

// Random builds a tree of size nodes named prefix0..prefix{size-1}. Every
// node after the root is attached to a randomly chosen node that still has
// room under MaxChildren and MaxDepth.
func (g *Generator) Random(size int) *tree.Node[string] {
	if size < 1 {
		size = 1
	}
	root := tree.New(g.name(0))
	nodes := []*tree.Node[string]{root}
	for i := 1; i < size; i++ {
		var candidates []*tree.Node[string]
		for _, n := range nodes {
			if g.cfg.MaxChildren > 0 && n.Len() >= g.cfg.MaxChildren {
				continue
			}
			if g.cfg.MaxDepth > 0 && n.Depth() >= g.cfg.MaxDepth {
				continue
			}
			candidates = append(candidates, n)
		}
		if len(candidates) == 0 {
			break
		}
		parent := candidates[g.rng.Intn(len(candidates))]
		child := tree.New(g.name(i))
		_ = parent.Insert(g.rng.Intn(parent.Len()+1), child)
		nodes = append(nodes, child)
	}
	return root
}

// Chain builds n0 -> n1 -> ... -> n{size-1}, each node the only child of
// the previous one.
func (g *Generator) Chain(size int) *tree.Node[string] {
	root := tree.New(g.name(0))
	cur := root
	for i := 1; i < size; i++ {
		next := tree.New(g.name(i))
		_ = cur.Append(next)
		cur = next
	}
	return root
}

// Star builds a root ("hub") with the given number of leaf children.
func (g *Generator) Star(spokes int) *tree.Node[string] {
	root := tree.New("hub")
	for i := 1; i <= spokes; i++ {
		_ = root.Append(tree.New(fmt.Sprintf("spoke%d", i)))
	}
	return root
}

// Balanced builds a complete tree with the given depth and fanout. Names
// encode the path, e.g. "r.0.2".
func (g *Generator) Balanced(depth, fanout int) *tree.Node[string] {
	var build func(name string, d int) *tree.Node[string]
	build = func(name string, d int) *tree.Node[string] {
		n := tree.New(name)
		if d == depth {
			return n
		}
		for i := 0; i < fanout; i++ {
			_ = n.Append(build(fmt.Sprintf("%s.%d", name, i), d+1))
		}
		return n
	}
	return build("r", 0)
}

// Inventory builds a root group holding the given number of groups, each
// with serversPerGroup servers.
func (g *Generator) Inventory(groups, serversPerGroup int) *tree.Node[inventory.Item] {
	root := inventory.NewRoot("inventory")
	for i := 0; i < groups; i++ {
		grp := tree.New(inventory.Group(fmt.Sprintf("group-%d", i)))
		for j := 0; j < serversPerGroup; j++ {
			host := fmt.Sprintf("10.%d.%d.%d", i, j, g.rng.Intn(254)+1)
			_ = grp.Append(tree.New(inventory.Server(fmt.Sprintf("srv-%d-%d", i, j), host, 22)))
		}
		_ = root.Append(grp)
	}
	return root
}

// Nodes returns every node of the tree in pre-order.
func Nodes[V any](root *tree.Node[V]) []*tree.Node[V] {
	var out []*tree.Node[V]
	root.Walk(func(n *tree.Node[V], _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Pick returns k distinct nodes chosen at random, excluding the root.
func (g *Generator) Pick(root *tree.Node[string], k int) []*tree.Node[string] {
	all := Nodes(root)[1:]
	g.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

func (g *Generator) name(i int) string {
	return fmt.Sprintf("%s%d", g.cfg.NamePrefix, i)
}

// ============================================================================
// Shape notation
// ============================================================================

// Shape renders a tree as "root(a(a1,a2),b)" using node labels.
func Shape[V any](root *tree.Node[V]) string {
	var sb strings.Builder
	var write func(n *tree.Node[V])
	write = func(n *tree.Node[V]) {
		sb.WriteString(n.Label())
		if n.Len() == 0 {
			return
		}
		sb.WriteByte('(')
		for i, c := range n.Children() {
			if i > 0 {
				sb.WriteByte(',')
			}
			write(c)
		}
		sb.WriteByte(')')
	}
	write(root)
	return sb.String()
}

// ParseShape builds a string tree from the notation produced by Shape.
// Names may not contain "(", ")" or ",". It panics on malformed input.
func ParseShape(s string) *tree.Node[string] {
	s = strings.ReplaceAll(s, " ", "")
	pos := 0
	var parse func() *tree.Node[string]
	parse = func() *tree.Node[string] {
		start := pos
		for pos < len(s) && !strings.ContainsRune("(),", rune(s[pos])) {
			pos++
		}
		if pos == start {
			panic(fmt.Sprintf("testutil: empty name at %d in %q", pos, s))
		}
		n := tree.New(s[start:pos])
		if pos < len(s) && s[pos] == '(' {
			pos++
			for {
				_ = n.Append(parse())
				if pos >= len(s) {
					panic(fmt.Sprintf("testutil: unterminated group in %q", s))
				}
				if s[pos] == ',' {
					pos++
					continue
				}
				if s[pos] == ')' {
					pos++
					break
				}
			}
		}
		return n
	}
	root := parse()
	if pos != len(s) {
		panic(fmt.Sprintf("testutil: trailing input at %d in %q", pos, s))
	}
	return root
}

// Find returns the first node labelled name, or nil.
func Find[V any](root *tree.Node[V], name string) *tree.Node[V] {
	var found *tree.Node[V]
	root.Walk(func(n *tree.Node[V], _ int) bool {
		if found != nil {
			return false
		}
		if n.Label() == name {
			found = n
			return false
		}
		return true
	})
	return found
}
