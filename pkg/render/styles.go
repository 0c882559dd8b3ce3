package render

import (
	"io"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorMode selects when output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Styles holds the lipgloss styles used for one output stream.
type Styles struct {
	Renderer *lipgloss.Renderer

	Group    lipgloss.Style
	Server   lipgloss.Style
	Entity   lipgloss.Style
	Location lipgloss.Style
	Branch   lipgloss.Style
	Address  lipgloss.Style
	Tags     lipgloss.Style
	Muted    lipgloss.Style
	Header   lipgloss.Style
}

// isTerminal reports whether w is a terminal, and its file descriptor.
func isTerminal(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// profileFor picks the color profile for w. Auto mode follows the terminal
// and the usual environment switches (NO_COLOR, CLICOLOR_FORCE, TERM).
func profileFor(w io.Writer, mode ColorMode) termenv.Profile {
	switch mode {
	case ColorNever:
		return termenv.Ascii
	case ColorAlways:
		return termenv.ANSI256
	}
	if _, ok := isTerminal(w); !ok {
		return termenv.Ascii
	}
	switch p := colorprofile.Detect(w, os.Environ()); {
	case p >= colorprofile.TrueColor:
		return termenv.TrueColor
	case p >= colorprofile.ANSI256:
		return termenv.ANSI256
	case p >= colorprofile.ANSI:
		return termenv.ANSI
	}
	return termenv.Ascii
}

// NewStyles builds the styles for w.
func NewStyles(w io.Writer, mode ColorMode) Styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profileFor(w, mode))

	return Styles{
		Renderer: r,
		Group:    r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1A5FB4", Dark: "#8CB4FF"}),
		Server:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#26A269", Dark: "#8FE388"}),
		Entity:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9141AC", Dark: "#D7A6FF"}),
		Location: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#77767B", Dark: "#7D7D88"}),
		Branch:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9A9996", Dark: "#5E5E6A"}),
		Address:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C64600", Dark: "#FFB86C"}),
		Tags:     r.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#0B7A75", Dark: "#6FE7DD"}),
		Muted:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#77767B", Dark: "#7D7D88"}),
		Header:   r.NewStyle().Bold(true).Underline(true),
	}
}
