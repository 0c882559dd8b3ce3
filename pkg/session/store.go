package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/vanderheijden86/netinv/internal/datasource"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
	"github.com/vanderheijden86/netinv/pkg/workspace"
)

// store is where a session's tree comes from and goes to.
type store interface {
	// Load reads the tree without changing where Save writes. Calling
	// adopt makes the store write back to what this Load read.
	Load(ctx context.Context) (root *tree.Node[inventory.Item], adopt func(), err error)
	Save(root *tree.Node[inventory.Item]) error
	// Paths lists the files backing the tree, for watching.
	Paths() []string
	Name() string
}

// fileStore is a single inventory file. A missing file loads as an empty
// inventory and is created on the first save.
type fileStore struct {
	path string
}

func newFileStore(path string) (*fileStore, error) {
	resolved, err := datasource.Resolve(path)
	switch {
	case err == nil:
		path = resolved
	case errors.Is(err, fs.ErrNotExist):
		if _, err := datasource.Detect(path); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return &fileStore{path: path}, nil
}

func (f *fileStore) Load(context.Context) (*tree.Node[inventory.Item], func(), error) {
	if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
		return inventory.NewRoot(""), func() {}, nil
	}
	root, err := datasource.Load(f.path)
	return root, func() {}, err
}

func (f *fileStore) Save(root *tree.Node[inventory.Item]) error {
	return datasource.Save(f.path, root)
}

func (f *fileStore) Paths() []string { return []string{f.path} }

func (f *fileStore) Name() string { return f.path }

// workspaceStore is a workspace file whose inventories are mounted as
// groups under one root and written back to their own files.
type workspaceStore struct {
	configPath string
	results    []workspace.LoadResult
}

func (w *workspaceStore) Load(ctx context.Context) (*tree.Node[inventory.Item], func(), error) {
	root, results, err := workspace.LoadAllFromConfig(ctx, w.configPath)
	if err != nil {
		return nil, nil, err
	}
	return root, func() { w.results = results }, nil
}

func (w *workspaceStore) Save(root *tree.Node[inventory.Item]) error {
	return workspace.SaveAll(root, w.results)
}

func (w *workspaceStore) Paths() []string {
	var paths []string
	for _, r := range w.results {
		if r.Error == nil {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

func (w *workspaceStore) Name() string { return fmt.Sprintf("workspace %s", w.configPath) }

// fingerprint identifies one version of a file on disk, so the session can
// tell its own saves apart from changes made by other programs.
type fingerprint struct {
	mtime time.Time
	size  int64
}

func fingerprintOf(path string) fingerprint {
	var fp fingerprint
	if info, err := os.Stat(path); err == nil {
		fp = fingerprint{mtime: info.ModTime(), size: info.Size()}
	}
	if info, err := os.Stat(path + "-wal"); err == nil {
		if info.ModTime().After(fp.mtime) {
			fp.mtime = info.ModTime()
		}
		fp.size += info.Size()
	}
	return fp
}
