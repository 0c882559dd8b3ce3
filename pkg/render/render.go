// Package render prints inventory trees, undo histories and summaries as
// text for the ni command line.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/vanderheijden86/netinv/pkg/edit"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// Options controls tree output.
type Options struct {
	// Width truncates lines; 0 uses the terminal width, or no limit when
	// the output is not a terminal.
	Width int
	Color ColorMode

	// Locations prefixes every line with the node's location.
	Locations bool

	// MaxDepth stops below this depth; 0 means unlimited.
	MaxDepth int

	// Collapse hides the children of groups that are not expanded.
	Collapse bool
}

// Printer renders to one output stream.
type Printer struct {
	w      io.Writer
	opts   Options
	styles Styles
	width  int
}

// New returns a Printer for w.
func New(w io.Writer, opts Options) *Printer {
	if opts.Color == "" {
		opts.Color = ColorAuto
	}
	p := &Printer{w: w, opts: opts, styles: NewStyles(w, opts.Color), width: opts.Width}
	if p.width == 0 {
		if fd, ok := isTerminal(w); ok {
			if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
				p.width = cols
			}
		}
	}
	return p
}

// Width returns the line width in effect, 0 for unlimited.
func (p *Printer) Width() int {
	return p.width
}

// Styles returns the printer's styles.
func (p *Printer) Styles() Styles {
	return p.styles
}

// line is one row of tree output before styling.
type line struct {
	loc    string
	branch string
	node   *tree.Node[inventory.Item]
	hidden int // children not shown
}

// Tree writes root and its descendants.
func (p *Printer) Tree(root *tree.Node[inventory.Item]) error {
	_, err := io.WriteString(p.w, p.TreeString(root))
	return err
}

// TreeString renders root and its descendants.
func (p *Printer) TreeString(root *tree.Node[inventory.Item]) string {
	return p.SubtreeString(root, tree.Location{})
}

// SubtreeString renders n and its descendants, numbering locations from
// base, the location of n in its tree.
func (p *Printer) SubtreeString(n *tree.Node[inventory.Item], base tree.Location) string {
	if n == nil {
		return ""
	}
	var lines []line
	var walk func(n *tree.Node[inventory.Item], loc tree.Location, prefix, connector string, depth int)
	walk = func(n *tree.Node[inventory.Item], loc tree.Location, prefix, connector string, depth int) {
		l := line{loc: loc.String(), branch: prefix + connector, node: n}
		descend := n.Len() > 0 &&
			(p.opts.MaxDepth == 0 || depth < p.opts.MaxDepth) &&
			(!p.opts.Collapse || n.Expanded || depth == 0)
		if !descend {
			l.hidden = n.Count() - 1
		}
		lines = append(lines, l)
		if !descend {
			return
		}

		childPrefix := prefix
		switch connector {
		case "":
		case "└── ":
			childPrefix += "    "
		default:
			childPrefix += "│   "
		}
		for i, c := range n.Children() {
			conn := "├── "
			if i == n.Len()-1 {
				conn = "└── "
			}
			walk(c, loc.Child(i), childPrefix, conn, depth+1)
		}
	}
	walk(n, base, "", "", 0)

	locWidth := 0
	if p.opts.Locations {
		for _, l := range lines {
			locWidth = max(locWidth, runewidth.StringWidth(l.loc))
		}
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(p.renderLine(l, locWidth))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (p *Printer) renderLine(l line, locWidth int) string {
	var sb strings.Builder
	used := 0
	if p.opts.Locations {
		loc := runewidth.FillRight(l.loc, locWidth)
		sb.WriteString(p.styles.Location.Render(loc))
		sb.WriteString("  ")
		used += locWidth + 2
	}
	sb.WriteString(p.styles.Branch.Render(l.branch))
	used += runewidth.StringWidth(l.branch)

	it := l.node.Value()
	glyph := Glyph(it.Kind, l.node.Expanded || l.node.Len() == 0)
	sb.WriteString(p.kindStyle(it.Kind).Render(glyph))
	sb.WriteByte(' ')
	used += runewidth.StringWidth(glyph) + 1

	// Plain segments first, so truncation never cuts an escape sequence.
	type segment struct {
		text  string
		style func(...string) string
	}
	segs := []segment{{it.Name, p.kindStyle(it.Kind).Render}}
	if addr := it.Address(); addr != "" {
		if it.User != "" {
			addr = it.User + "@" + addr
		}
		segs = append(segs, segment{"  " + addr, p.styles.Address.Render})
	}
	if len(it.Tags) > 0 {
		segs = append(segs, segment{"  [" + strings.Join(it.Tags, ", ") + "]", p.styles.Tags.Render})
	}
	if l.hidden > 0 {
		segs = append(segs, segment{fmt.Sprintf("  (+%d)", l.hidden), p.styles.Muted.Render})
	}

	room := -1
	if p.width > 0 {
		room = max(p.width-used, 1)
	}
	for _, s := range segs {
		if room == 0 {
			break
		}
		text := s.text
		if room > 0 {
			w := runewidth.StringWidth(text)
			if w > room {
				text = truncate(text, room)
				w = room
			}
			room -= w
		}
		sb.WriteString(s.style(text))
	}
	return sb.String()
}

func (p *Printer) kindStyle(k inventory.Kind) lipgloss.Style {
	switch k {
	case inventory.KindGroup:
		return p.styles.Group
	case inventory.KindServer:
		return p.styles.Server
	}
	return p.styles.Entity
}

// Glyph returns the marker drawn before an item of kind k. Groups show
// whether they are expanded.
func Glyph(k inventory.Kind, expanded bool) string {
	switch k {
	case inventory.KindGroup:
		if expanded {
			return "▾"
		}
		return "▸"
	case inventory.KindServer:
		return "●"
	}
	return "◆"
}

// truncate shortens s to maxWidth columns, ending in an ellipsis.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// History writes the undo stack oldest first, then the redo stack.
func (p *Printer) History(entries []edit.Entry) error {
	_, err := io.WriteString(p.w, p.HistoryString(entries))
	return err
}

// HistoryString renders entries as a numbered list. Undone entries are
// marked and muted.
func (p *Printer) HistoryString(entries []edit.Entry) string {
	if len(entries) == 0 {
		return p.styles.Muted.Render("(no edits)") + "\n"
	}
	width := len(fmt.Sprint(len(entries)))
	var sb strings.Builder
	for i, e := range entries {
		num := fmt.Sprintf("%*d", width, i+1)
		if e.Undone {
			sb.WriteString(p.styles.Muted.Render(num + "  " + e.Description + "  (undone)"))
		} else {
			sb.WriteString(num + "  " + e.Description)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary renders item counts by kind, e.g. "2 groups, 3 servers".
func Summary(root *tree.Node[inventory.Item]) string {
	counts := inventory.Stats(root)
	var parts []string
	for _, k := range []inventory.Kind{inventory.KindGroup, inventory.KindServer, inventory.KindEntity} {
		n := counts[k]
		if n == 0 {
			continue
		}
		name := string(k)
		if n != 1 {
			name = plural(k)
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, ", ")
}

func plural(k inventory.Kind) string {
	if k == inventory.KindEntity {
		return "entities"
	}
	return string(k) + "s"
}
