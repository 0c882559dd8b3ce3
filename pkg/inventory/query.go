package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vanderheijden86/netinv/pkg/tree"
)

// ErrInvalidQuery wraps compile and evaluation errors of a Query.
var ErrInvalidQuery = errors.New("invalid query")

// queryEnv is what a query expression sees for one item.
type queryEnv struct {
	Kind     string   `expr:"kind"`
	Name     string   `expr:"name"`
	Host     string   `expr:"host"`
	Port     int      `expr:"port"`
	Addr     string   `expr:"addr"`
	User     string   `expr:"user"`
	Tags     []string `expr:"tags"`
	Notes    string   `expr:"notes"`
	Depth    int      `expr:"depth"`
	Path     string   `expr:"path"` // names from the root, joined with "/"
	Children int      `expr:"children"`
}

// Query is a compiled boolean expression over item fields, e.g.
//
//	kind == "server" && port == 22 && "prod" in tags
//	name startsWith "web" || host matches "^10\\.0\\."
type Query struct {
	src string
	prg *vm.Program
}

// CompileQuery parses src. It fails unless src is a boolean expression over
// the item fields kind, name, host, port, addr, user, tags, notes, depth,
// path and children.
func CompileQuery(src string) (*Query, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidQuery)
	}
	prg, err := expr.Compile(src, expr.Env(queryEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return &Query{src: src, prg: prg}, nil
}

// String returns the source expression.
func (q *Query) String() string { return q.src }

// Match is one node selected by a query.
type Match struct {
	Location tree.Location
	Node     *tree.Node[Item]
}

// Where returns the nodes of root matching q, in pre-order.
func (q *Query) Where(root *tree.Node[Item]) ([]Match, error) {
	var (
		matches []Match
		err     error
		names   []string
		loc     tree.Location
	)
	var walk func(n *tree.Node[Item])
	walk = func(n *tree.Node[Item]) {
		it := n.Value()
		names = append(names, it.Name)
		defer func() { names = names[:len(names)-1] }()

		out, runErr := expr.Run(q.prg, queryEnv{
			Kind:     string(it.Kind),
			Name:     it.Name,
			Host:     it.Host,
			Port:     it.Port,
			Addr:     it.Address(),
			User:     it.User,
			Tags:     it.Tags,
			Notes:    it.Notes,
			Depth:    len(loc),
			Path:     strings.Join(names, "/"),
			Children: n.Len(),
		})
		if runErr != nil {
			err = fmt.Errorf("%w: at %s: %w", ErrInvalidQuery, loc, runErr)
			return
		}
		if ok, _ := out.(bool); ok {
			matches = append(matches, Match{Location: loc.Clone(), Node: n})
		}
		for i, c := range n.Children() {
			if err != nil {
				return
			}
			loc = append(loc, i)
			walk(c)
			loc = loc[:len(loc)-1]
		}
	}
	if root != nil {
		walk(root)
	}
	if err != nil {
		return nil, err
	}
	return matches, nil
}
