package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/netinv/pkg/tree"
)

// DocumentVersion is the current schema version of inventory documents.
const DocumentVersion = 1

// Document is the on-disk form of a whole inventory tree.
//
// YAML example:
//
//	version: 1
//	root:
//	  kind: group
//	  name: inventory
//	  children:
//	    - kind: server
//	      name: web-1
//	      host: 10.0.0.5
//	      port: 22
type Document struct {
	Version int    `yaml:"version" json:"version"`
	Root    Record `yaml:"root" json:"root"`
}

// Record is one nested node of a Document.
type Record struct {
	Item     `yaml:",inline"`
	Expanded bool     `yaml:"expanded,omitempty" json:"expanded,omitempty"`
	Children []Record `yaml:"children,omitempty" json:"children,omitempty"`
}

// NewRoot returns the root node of an empty inventory.
func NewRoot(name string) *tree.Node[Item] {
	if name == "" {
		name = "inventory"
	}
	root := tree.New(Group(name))
	root.Expanded = true
	return root
}

// ToTree materializes the document as a live tree.
func (d Document) ToTree() *tree.Node[Item] {
	var build func(r Record) *tree.Node[Item]
	build = func(r Record) *tree.Node[Item] {
		n := tree.New(r.Item.Clone())
		n.Expanded = r.Expanded
		for _, c := range r.Children {
			_ = n.Append(build(c))
		}
		return n
	}
	return build(d.Root)
}

// FromTree snapshots a live tree into a Document.
func FromTree(root *tree.Node[Item]) Document {
	var snap func(n *tree.Node[Item]) Record
	snap = func(n *tree.Node[Item]) Record {
		r := Record{Item: n.Value().Clone(), Expanded: n.Expanded}
		for _, c := range n.Children() {
			r.Children = append(r.Children, snap(c))
		}
		return r
	}
	return Document{Version: DocumentVersion, Root: snap(root)}
}

// Validate checks every item in the document and reports all failures,
// each prefixed with the item's location.
func (d Document) Validate() error {
	if d.Version > DocumentVersion {
		return fmt.Errorf("unsupported document version %d (max %d)", d.Version, DocumentVersion)
	}
	var errs []error
	var walk func(r Record, loc tree.Location)
	walk = func(r Record, loc tree.Location) {
		if err := r.Item.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", loc, err))
		}
		for i, c := range r.Children {
			walk(c, loc.Child(i))
		}
	}
	walk(d.Root, tree.Location{})
	return errors.Join(errs...)
}

// DecodeYAML parses a YAML document.
func DecodeYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing inventory yaml: %w", err)
	}
	normalize(&doc)
	return doc, nil
}

// EncodeYAML renders the document as YAML.
func EncodeYAML(doc Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling inventory yaml: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a JSON document.
func DecodeJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing inventory json: %w", err)
	}
	normalize(&doc)
	return doc, nil
}

// EncodeJSON renders the document as indented JSON.
func EncodeJSON(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling inventory json: %w", err)
	}
	return data, nil
}

// normalize fills defaults for documents written by hand.
func normalize(doc *Document) {
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Root.Kind == "" {
		doc.Root.Kind = KindGroup
	}
	if doc.Root.Name == "" {
		doc.Root.Name = "inventory"
	}
}

// Find returns the first node (pre-order) whose name matches, ignoring case.
func Find(root *tree.Node[Item], name string) *tree.Node[Item] {
	var found *tree.Node[Item]
	root.Walk(func(n *tree.Node[Item], _ int) bool {
		if found != nil {
			return false
		}
		if strings.EqualFold(n.Value().Name, name) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Stats counts the items of each kind in a tree.
func Stats(root *tree.Node[Item]) map[Kind]int {
	counts := make(map[Kind]int)
	root.Walk(func(n *tree.Node[Item], _ int) bool {
		counts[n.Value().Kind]++
		return true
	})
	return counts
}

// Select resolves several locations against root. It fails on the first
// location that does not resolve.
func Select(root *tree.Node[Item], locs []tree.Location) ([]*tree.Node[Item], error) {
	nodes := make([]*tree.Node[Item], 0, len(locs))
	for _, loc := range locs {
		n, err := tree.Resolve(loc, root)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
