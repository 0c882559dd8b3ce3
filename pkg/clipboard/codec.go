// Package clipboard moves copied inventory forests through text: a small
// versioned document encoded as YAML or JSON, stored either in an
// in-process Buffer or on the operating system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/netinv/pkg/forest"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/metrics"
)

// Format selects the clip encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json" in any case. An empty string
// selects YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// clipVersion is bumped when the clip layout changes.
const clipVersion = 1

// clip is the serialized form of a forest.
type clip struct {
	Netinv int                `yaml:"netinv" json:"netinv"`
	Items  []inventory.Record `yaml:"items" json:"items"`
}

// Encode serializes a forest.
func Encode(f forest.Forest[inventory.Item], format Format) ([]byte, error) {
	defer metrics.Timer(metrics.ClipboardCodec)()

	f = forest.Map(f, inventory.Item.Clone)
	c := clip{Netinv: clipVersion, Items: make([]inventory.Record, 0, f.Len())}
	for _, r := range f.Roots {
		c.Items = append(c.Items, toRecord(r))
	}
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding clip: %w", err)
		}
		return data, nil
	case FormatYAML, "":
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encoding clip: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Decode parses a clip produced by Encode. The format is detected from the
// text: JSON clips start with "{" or "[", anything else is read as YAML. A
// bare JSON or YAML list of records is accepted as well. Every item is
// validated.
func Decode(data []byte) (forest.Forest[inventory.Item], error) {
	defer metrics.Timer(metrics.ClipboardCodec)()

	var f forest.Forest[inventory.Item]
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return f, ErrEmpty
	}

	var c clip
	var err error
	list := false
	switch {
	case text[0] == '{':
		err = json.Unmarshal(text, &c)
	case text[0] == '[':
		list = true
		err = json.Unmarshal(text, &c.Items)
	default:
		if err = yaml.Unmarshal(text, &c); err != nil {
			// maybe a bare list
			if yaml.Unmarshal(text, &c.Items) == nil {
				list, err = true, nil
			}
		}
	}
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrUnknownFormat, err)
	}
	if !list && c.Netinv == 0 {
		return f, fmt.Errorf("%w: missing netinv header", ErrUnknownFormat)
	}
	if c.Netinv > clipVersion {
		return f, fmt.Errorf("%w: clip version %d is newer than %d", ErrUnknownFormat, c.Netinv, clipVersion)
	}
	if len(c.Items) == 0 {
		return f, ErrEmpty
	}

	var errs []error
	for i, r := range c.Items {
		f.Roots = append(f.Roots, fromRecord(r, fmt.Sprintf("item %d", i), &errs))
	}
	if err := errors.Join(errs...); err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	return f, nil
}

func toRecord(n *forest.Node[inventory.Item]) inventory.Record {
	r := inventory.Record{Item: n.Value}
	for _, c := range n.Children {
		r.Children = append(r.Children, toRecord(c))
	}
	return r
}

func fromRecord(r inventory.Record, path string, errs *[]error) *forest.Node[inventory.Item] {
	if err := r.Item.Validate(); err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", path, err))
	}
	n := &forest.Node[inventory.Item]{Value: r.Item.Clone()}
	for i, c := range r.Children {
		n.Children = append(n.Children, fromRecord(c, fmt.Sprintf("%s.%d", path, i), errs))
	}
	return n
}
