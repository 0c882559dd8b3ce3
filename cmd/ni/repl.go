package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vanderheijden86/netinv/pkg/edit"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/render"
	"github.com/vanderheijden86/netinv/pkg/session"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// errQuit ends the REPL loop.
var errQuit = errors.New("quit")

const replHelp = `Commands:
  ls [loc] [-c] [-d depth]          print the tree (or the subtree at loc)
  find <name>                       print the location of an item
  where <expr>                      print items matching an expression, e.g.
                                    where kind == "server" && "prod" in tags
  stats                             count items by kind
  add <parent> <kind> <name> [host[:port]] [field=value...]
                                    append a group, server or entity
  rm <loc>...                       delete items and their subtrees
  set <loc> <field>=<value>...      change fields (kind name host port user tags notes)
  cp [-r] <loc>...                  copy items with their connecting ancestors
                                    (-r copies whole subtrees)
  cut <loc>...                      copy whole subtrees and delete them
  paste <parent> [index]            insert the clipboard under parent
  undo, redo                        step through the edit history
  history                           list the edit history
  save                              write the inventory
  reload [-f]                       re-read from disk (-f discards edits)
  help                              show this help
  quit                              leave (twice to discard unsaved edits)

Locations look like /0/2/1; / is the root.`

// command is one parsed REPL line.
type command struct {
	Verb string
	Args []string
}

// parseCommand splits a REPL line into a verb and its arguments.
func parseCommand(input string) (command, error) {
	parts := splitArgs(strings.TrimSpace(input))
	if len(parts) == 0 {
		return command{}, errors.New("empty command")
	}
	return command{Verb: strings.ToLower(parts[0]), Args: parts[1:]}, nil
}

// splitArgs splits on whitespace, keeping quoted strings together and
// honoring backslash escapes.
func splitArgs(input string) []string {
	var args []string
	var current strings.Builder
	inArg := false
	quote := rune(0)
	escaped := false

	for _, ch := range input {
		switch {
		case escaped:
			current.WriteRune(ch)
			escaped = false
		case ch == '\\':
			escaped = true
			inArg = true
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
			inArg = true
		case quote == 0 && (ch == ' ' || ch == '\t'):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(ch)
			inArg = true
		}
	}
	if inArg {
		args = append(args, current.String())
	}
	return args
}

// REPL executes editing commands against a session.
type REPL struct {
	sess      *session.Session
	out       io.Writer
	printer   *render.Printer
	opts      render.Options
	quitArmed bool
}

// NewREPL returns a REPL printing to out.
func NewREPL(sess *session.Session, out io.Writer, opts render.Options) *REPL {
	opts.Locations = true
	return &REPL{sess: sess, out: out, printer: render.New(out, opts), opts: opts}
}

// Prompt reflects whether there are unsaved edits.
func (r *REPL) Prompt() string {
	if r.sess.Dirty() {
		return "ni*> "
	}
	return "ni> "
}

// Run reads commands from rl until quit or end of input.
func (r *REPL) Run(rl *readline.Instance) error {
	fmt.Fprintf(r.out, "%s: %s. Type 'help' for commands.\n", r.sess.Name(), render.Summary(r.sess.Root()))
	for {
		rl.SetPrompt(r.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if r.sess.Dirty() {
				fmt.Fprintln(r.out, "warning: leaving with unsaved edits")
			}
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		err = r.Execute(line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// Execute runs one command line. It returns errQuit when the REPL should
// stop.
func (r *REPL) Execute(line string) error {
	cmd, err := parseCommand(line)
	if err != nil {
		return err
	}
	if cmd.Verb != "quit" && cmd.Verb != "exit" && cmd.Verb != "q" {
		r.quitArmed = false
	}

	switch cmd.Verb {
	case "ls", "show":
		return r.list(cmd.Args)
	case "find":
		return r.find(cmd.Args)
	case "where":
		// Expressions keep their quotes, so take the raw remainder of the line.
		_, src, _ := strings.Cut(strings.TrimSpace(line), " ")
		return r.where(src)
	case "stats":
		var summary string
		r.sess.View(func(root *tree.Node[inventory.Item]) { summary = render.Summary(root) })
		fmt.Fprintln(r.out, summary)
		return nil
	case "add":
		return r.add(cmd.Args)
	case "rm", "del", "delete":
		return r.remove(cmd.Args)
	case "set":
		return r.set(cmd.Args)
	case "cp", "copy":
		return r.copy(cmd.Args)
	case "cut":
		return r.cut(cmd.Args)
	case "paste":
		return r.paste(cmd.Args)
	case "undo":
		desc, err := r.sess.Undo()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "undid: %s\n", desc)
		return nil
	case "redo":
		desc, err := r.sess.Redo()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "redid: %s\n", desc)
		return nil
	case "history":
		return r.printer.History(r.sess.History())
	case "save":
		if err := r.sess.Save(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "saved %s\n", r.sess.Name())
		return nil
	case "reload":
		return r.reload(cmd.Args)
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case "quit", "exit", "q":
		if r.sess.Dirty() && !r.quitArmed {
			r.quitArmed = true
			return errors.New("unsaved edits: save first, or quit again to discard them")
		}
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try 'help')", cmd.Verb)
}

func parseLocations(args []string) ([]tree.Location, error) {
	locs := make([]tree.Location, 0, len(args))
	for _, a := range args {
		loc, err := tree.ParseLocation(a)
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func (r *REPL) list(args []string) error {
	loc := tree.Location{}
	opts := struct {
		collapse bool
		depth    int
	}{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c":
			opts.collapse = true
		case "-d":
			if i+1 >= len(args) {
				return errors.New("-d needs a depth")
			}
			d, err := strconv.Atoi(args[i+1])
			if err != nil || d < 1 {
				return fmt.Errorf("invalid depth %q", args[i+1])
			}
			opts.depth = d
			i++
		default:
			l, err := tree.ParseLocation(args[i])
			if err != nil {
				return err
			}
			loc = l
		}
	}

	ro := r.opts
	ro.Collapse = opts.collapse
	ro.MaxDepth = opts.depth
	p := render.New(r.out, ro)
	var out string
	var err error
	r.sess.View(func(root *tree.Node[inventory.Item]) {
		var n *tree.Node[inventory.Item]
		if n, err = tree.Resolve(loc, root); err == nil {
			out = p.SubtreeString(n, loc)
		}
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.out, out)
	return err
}

func (r *REPL) find(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: find <name>")
	}
	var (
		loc   tree.Location
		label string
		err   error
	)
	r.sess.View(func(root *tree.Node[inventory.Item]) {
		n := inventory.Find(root, args[0])
		if n == nil {
			err = fmt.Errorf("no item named %q", args[0])
			return
		}
		label = n.Label()
		loc, err = tree.LocationOf(n, root)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s  %s\n", loc, label)
	return nil
}

func (r *REPL) where(src string) error {
	q, err := inventory.CompileQuery(src)
	if err != nil {
		return err
	}
	var matches []inventory.Match
	r.sess.View(func(root *tree.Node[inventory.Item]) {
		matches, err = q.Where(root)
	})
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintf(r.out, "%s  %s\n", m.Location, m.Node.Label())
	}
	fmt.Fprintf(r.out, "%d matching\n", len(matches))
	return nil
}

func (r *REPL) add(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: add <parent> <kind> <name> [host[:port]] [field=value...]")
	}
	parent, err := tree.ParseLocation(args[0])
	if err != nil {
		return err
	}
	kind, err := inventory.ParseKind(args[1])
	if err != nil {
		return err
	}
	item := inventory.Item{Kind: kind, Name: args[2]}

	rest := args[3:]
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		host, port, err := inventory.SplitAddress(rest[0])
		if err != nil {
			return err
		}
		item.Host, item.Port = host, port
		rest = rest[1:]
	}
	if err := applyFields(&item, rest); err != nil {
		return err
	}

	loc, err := r.sess.Add(parent, edit.AppendIndex, item)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "added %s at %s\n", item, loc)
	return nil
}

func applyFields(item *inventory.Item, pairs []string) error {
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected field=value, got %q", pair)
		}
		if err := item.Set(field, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *REPL) remove(args []string) error {
	locs, err := parseLocations(args)
	if err != nil {
		return err
	}
	if err := r.sess.Remove(locs...); err != nil {
		return err
	}
	fmt.Fprintln(r.out, lastDescription(r.sess))
	return nil
}

func (r *REPL) set(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: set <loc> <field>=<value>...")
	}
	loc, err := tree.ParseLocation(args[0])
	if err != nil {
		return err
	}
	err = r.sess.Update(loc, func(it *inventory.Item) error {
		return applyFields(it, args[1:])
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, lastDescription(r.sess))
	return nil
}

func (r *REPL) copy(args []string) error {
	subtrees := len(args) > 0 && args[0] == "-r"
	if subtrees {
		args = args[1:]
	}
	locs, err := parseLocations(args)
	if err != nil {
		return err
	}
	copyFn := r.sess.Copy
	if subtrees {
		copyFn = r.sess.CopySubtrees
	}
	f, err := copyFn(locs...)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "copied %s in %s\n", plural(f.Size(), "item"), plural(f.Len(), "tree"))
	return nil
}

func (r *REPL) cut(args []string) error {
	locs, err := parseLocations(args)
	if err != nil {
		return err
	}
	f, err := r.sess.Cut(locs...)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "cut %s\n", plural(f.Size(), "item"))
	return nil
}

func (r *REPL) paste(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: paste <parent> [index]")
	}
	parent, err := tree.ParseLocation(args[0])
	if err != nil {
		return err
	}
	index := edit.AppendIndex
	if len(args) == 2 {
		if index, err = strconv.Atoi(args[1]); err != nil || index < 0 {
			return fmt.Errorf("invalid index %q", args[1])
		}
	}
	n, err := r.sess.Paste(parent, index)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "pasted %s\n", plural(n, "item"))
	return nil
}

func (r *REPL) reload(args []string) error {
	force := len(args) > 0 && args[0] == "-f"
	err := r.sess.Reload(context.Background(), force)
	if errors.Is(err, session.ErrUnsavedChanges) {
		return errors.New("unsaved edits: save first, or 'reload -f' to discard them")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "reloaded %s: %s\n", r.sess.Name(), render.Summary(r.sess.Root()))
	return nil
}

func lastDescription(s *session.Session) string {
	h := s.History()
	for i := len(h) - 1; i >= 0; i-- {
		if !h[i].Undone {
			return h[i].Description
		}
	}
	return ""
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
