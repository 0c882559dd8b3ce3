package datasource

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// Load reads the inventory at path, choosing the reader by extension. If
// path is a directory, the freshest valid inventory inside it is loaded.
func Load(path string) (*tree.Node[inventory.Item], error) {
	file, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	s, err := NewDataSource(file)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(s)
}

// Resolve returns path itself for a file, and the inventory Load would pick
// for a directory: discover, validate, select the best.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("opening inventory: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    path,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return "", err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("datasource: selected %s", best)
	return best.Path, nil
}

// LoadFromSource loads the inventory tree of a DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource) (*tree.Node[inventory.Item], error) {
	defer metrics.Timer(metrics.InventoryLoad)()

	switch source.Type {
	case SourceTypeSQLite:
		store, err := OpenSQLite(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer store.Close()
		return store.Load()

	case SourceTypeYAML, SourceTypeJSON:
		data, err := os.ReadFile(source.Path)
		if err != nil {
			return nil, fmt.Errorf("reading inventory: %w", err)
		}
		var doc inventory.Document
		if source.Type == SourceTypeYAML {
			doc, err = inventory.DecodeYAML(data)
		} else {
			doc, err = inventory.DecodeJSON(data)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source.Path, err)
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", source.Path, err)
		}
		return doc.ToTree(), nil

	default:
		return nil, fmt.Errorf("%w: source type %q", ErrUnsupported, source.Type)
	}
}

// Save writes the tree to path in the format implied by its extension.
// Document formats are written to a temporary file and renamed into place,
// so readers (and the file watcher) never see a partial file.
func Save(path string, root *tree.Node[inventory.Item]) error {
	defer metrics.Timer(metrics.InventorySave)()

	t, err := Detect(path)
	if err != nil {
		return err
	}
	if t == SourceTypeSQLite {
		store, err := OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("failed to open SQLite source %s: %w", path, err)
		}
		defer store.Close()
		return store.Save(root)
	}

	doc := inventory.FromTree(root)
	var data []byte
	if t == SourceTypeYAML {
		data, err = inventory.EncodeYAML(doc)
	} else {
		data, err = inventory.EncodeJSON(doc)
	}
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating inventory directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing inventory: %w", err)
	}
	return nil
}
