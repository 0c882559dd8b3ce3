package datasource

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// DiffContext is the number of unchanged lines kept around each change by
// TextDiff.
const DiffContext = 3

// TextDiff renders a line diff of the YAML forms of a and b. Removed lines
// start with "-", added lines with "+", and runs of unchanged lines longer
// than twice DiffContext are cut to "@@" markers. It returns "" when both
// trees encode identically.
func TextDiff(a, b *tree.Node[inventory.Item], nameA, nameB string) (string, error) {
	textA, err := inventory.EncodeYAML(inventory.FromTree(a))
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", nameA, err)
	}
	textB, err := inventory.EncodeYAML(inventory.FromTree(b))
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", nameB, err)
	}
	if string(textA) == string(textB) {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	charsA, charsB, lines := dmp.DiffLinesToChars(string(textA), string(textB))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsA, charsB, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", nameA, nameB)
	for i, d := range diffs {
		body := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writePrefixed(&sb, "-", body)
		case diffmatchpatch.DiffInsert:
			writePrefixed(&sb, "+", body)
		case diffmatchpatch.DiffEqual:
			head, tail := DiffContext, DiffContext
			if i == 0 {
				head = 0
			}
			if i == len(diffs)-1 {
				tail = 0
			}
			if len(body) <= head+tail {
				writePrefixed(&sb, " ", body)
				continue
			}
			writePrefixed(&sb, " ", body[:head])
			fmt.Fprintf(&sb, "@@ %d unchanged lines @@\n", len(body)-head-tail)
			writePrefixed(&sb, " ", body[len(body)-tail:])
		}
	}
	return sb.String(), nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func writePrefixed(sb *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
}
