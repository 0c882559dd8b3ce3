// Package session is an editing session over an inventory or a workspace:
// the live tree, its undo history, the clipboard and the files behind it.
//
// All methods are safe for concurrent use. File watchers run on their own
// goroutines and reload the tree when another program changes a file while
// the session has no unsaved edits.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/vanderheijden86/netinv/internal/datasource"
	"github.com/vanderheijden86/netinv/pkg/clipboard"
	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/edit"
	"github.com/vanderheijden86/netinv/pkg/forest"
	"github.com/vanderheijden86/netinv/pkg/hooks"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/tree"
	"github.com/vanderheijden86/netinv/pkg/watcher"
	"github.com/vanderheijden86/netinv/pkg/workspace"
)

// Options configures a Session.
type Options struct {
	// HistoryLimit bounds the undo stack; 0 means edit.DefaultHistoryLimit.
	HistoryLimit int

	// Clipboard receives copies and is read by Paste. Defaults to an
	// in-process buffer.
	Clipboard clipboard.Clipboard

	// Format is the clip encoding written by Copy and Cut.
	Format clipboard.Format

	// Watch reloads the tree when another program changes a backing file.
	Watch        bool
	WatchOptions []watcher.Option

	// Logger receives warnings. Defaults to discarding them.
	Logger *log.Logger

	// OnExternalChange is called after a backing file changed on disk. It
	// runs on a watcher goroutine without the session lock held.
	OnExternalChange func(Event)

	// Hooks run around every Save. A failing pre-save hook cancels it.
	Hooks *hooks.Config
}

// Event reports a change made to a backing file by another program.
type Event struct {
	Path string

	// Reloaded is true when the session had no unsaved edits and replaced
	// its tree with the file content.
	Reloaded bool

	// Diff lists how the file differs from the session tree when the
	// session kept its own edits instead of reloading.
	Diff datasource.SourceDiff

	Err error
}

// Session owns one inventory tree and every edit made to it.
type Session struct {
	mu sync.Mutex

	store   store
	root    *tree.Node[inventory.Item]
	counter *edit.Counter
	history *edit.History[inventory.Item]

	clip     clipboard.Clipboard
	format   clipboard.Format
	logger   *log.Logger
	onChange func(Event)
	hooks    *hooks.Config

	watchers []*watcher.Watcher
	written  map[string]fingerprint
	closed   bool
}

// Open starts a session on an inventory file. A directory is resolved to
// the best inventory inside it. A file that does not exist yet opens as an
// empty inventory and is created by Save.
func Open(path string, opts Options) (*Session, error) {
	st, err := newFileStore(path)
	if err != nil {
		return nil, err
	}
	root, adopt, err := st.Load(context.Background())
	if err != nil {
		return nil, err
	}
	adopt()
	return start(st, root, opts), nil
}

// OpenWorkspace starts a session on every inventory of a workspace file.
// Inventories that fail to load are logged and left out of the tree.
func OpenWorkspace(ctx context.Context, configPath string, opts Options) (*Session, error) {
	st := &workspaceStore{configPath: configPath}
	root, adopt, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	adopt()
	s := start(st, root, opts)
	if sum := workspace.Summarize(st.results); sum.FailedInventories > 0 {
		s.logger.Printf("warning: %s", sum)
	}
	return s, nil
}

func start(st store, root *tree.Node[inventory.Item], opts Options) *Session {
	s := &Session{
		store:    st,
		root:     root,
		counter:  edit.NewCounter(),
		history:  edit.NewHistory[inventory.Item](opts.HistoryLimit),
		clip:     opts.Clipboard,
		format:   opts.Format,
		logger:   opts.Logger,
		onChange: opts.OnExternalChange,
		hooks:    opts.Hooks,
		written:  make(map[string]fingerprint),
	}
	if s.clip == nil {
		s.clip = &clipboard.Buffer{}
	}
	if s.format == "" {
		s.format = clipboard.FormatYAML
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	s.recordWritten()
	if opts.Watch {
		s.watch(opts.WatchOptions)
	}
	debug.Log("session: opened %s (%d nodes)", st.Name(), root.Count())
	return s
}

func (s *Session) watch(opts []watcher.Option) {
	for _, path := range s.store.Paths() {
		w, err := watcher.New(path, append(slices.Clone(opts),
			watcher.WithOnChange(func() { s.fileChanged(path) }),
			watcher.WithOnError(func(err error) {
				s.logger.Printf("warning: watching %s: %v", path, err)
			}),
		)...)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			s.logger.Printf("warning: cannot watch %s: %v", path, err)
			continue
		}
		s.watchers = append(s.watchers, w)
	}
}

// recordWritten remembers the current state of every backing file. The
// caller holds s.mu or has not shared s yet.
func (s *Session) recordWritten() {
	for _, path := range s.store.Paths() {
		s.written[path] = fingerprintOf(path)
	}
}

func (s *Session) fileChanged(path string) {
	ev, ok := s.external(path)
	if ok && s.onChange != nil {
		s.onChange(ev)
	}
}

func (s *Session) external(path string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Event{}, false
	}
	fp := fingerprintOf(path)
	if fp == s.written[path] {
		debug.Log("session: ignoring own write to %s", path)
		return Event{}, false
	}
	s.written[path] = fp

	ev := Event{Path: path}
	disk, adopt, err := s.store.Load(context.Background())
	if err != nil {
		s.logger.Printf("warning: %s changed but could not be read: %v", path, err)
		ev.Err = err
		return ev, true
	}
	if s.history.Clean() {
		adopt()
		s.replace(disk)
		metrics.Reloads.Inc()
		ev.Reloaded = true
		return ev, true
	}

	metrics.ReloadConflicts.Inc()
	ev.Diff = datasource.DetectInconsistencies(disk, s.root, "disk", "session", datasource.DefaultDiffOptions())
	s.logger.Printf("warning: %s changed on disk while there are unsaved edits; keeping the session tree\n%s",
		path, ev.Diff.Summary())
	return ev, true
}

// replace swaps in a freshly loaded tree and forgets the history, whose
// commands refer to nodes of the old tree.
func (s *Session) replace(root *tree.Node[inventory.Item]) {
	debug.Assert(root.Parent() == nil, "replacement root is attached to a tree")
	s.root = root
	s.counter = edit.NewCounter()
	s.history.Clear()
	s.recordWritten()
}

func (s *Session) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Root returns the live tree. Callers must not modify it and must not use
// it concurrently with session methods; use View for that.
func (s *Session) Root() *tree.Node[inventory.Item] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// View calls fn with the live tree while holding the session lock.
func (s *Session) View(fn func(root *tree.Node[inventory.Item])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.root)
}

// Name describes what the session edits.
func (s *Session) Name() string {
	return s.store.Name()
}

// Paths lists the files the session loads from and saves to.
func (s *Session) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Paths()
}

// Dirty reports whether there are edits that Save has not written.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.history.Clean()
}

// History lists the undo and redo stacks.
func (s *Session) History() []edit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// do runs cmd through the history. The caller holds s.mu.
func (s *Session) do(cmd edit.Command[inventory.Item]) (*tree.Node[inventory.Item], error) {
	n, err := s.history.Do(cmd)
	if err != nil {
		return nil, err
	}
	debug.Log("session: %s", cmd.Description())
	return n, nil
}

// Add inserts item under the node at parent, at index or appended when
// index is edit.AppendIndex. It returns the new node's location.
func (s *Session) Add(parent tree.Location, index int, item inventory.Item) (tree.Location, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}

	p, err := tree.Resolve(parent, s.root)
	if err != nil {
		return nil, err
	}
	cmd, err := edit.NewInsertNode(s.counter, edit.At(p, index), item)
	if err != nil {
		return nil, err
	}
	n, err := s.do(cmd)
	if err != nil {
		return nil, err
	}
	return tree.LocationOf(n, s.root)
}

// Remove deletes the nodes at locs together with their subtrees.
func (s *Session) Remove(locs ...tree.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}

	nodes, err := s.selectNodes(locs)
	if err != nil {
		return err
	}
	cmd, err := edit.NewDeleteNodes(s.counter, nodes)
	if err != nil {
		return err
	}
	_, err = s.do(cmd)
	return err
}

// Set replaces the value of the node at loc.
func (s *Session) Set(loc tree.Location, item inventory.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}

	n, err := tree.Resolve(loc, s.root)
	if err != nil {
		return err
	}
	return s.modify(n, item)
}

// modify records a ModifyNode for n. The caller holds s.mu.
func (s *Session) modify(n *tree.Node[inventory.Item], item inventory.Item) error {
	cmd, err := edit.NewModifyNode(s.counter, n, item)
	if err != nil {
		return err
	}
	_, err = s.do(cmd)
	return err
}

// Update applies fn to a copy of the value at loc and stores the result as
// one undoable edit. fn runs without the session lock; if the tree is
// reloaded meanwhile the update fails with ErrTreeReplaced.
func (s *Session) Update(loc tree.Location, fn func(*inventory.Item) error) error {
	s.mu.Lock()
	err := s.check()
	var n *tree.Node[inventory.Item]
	if err == nil {
		n, err = tree.Resolve(loc, s.root)
	}
	var item inventory.Item
	root := s.root
	if err == nil {
		item = n.Value().Clone()
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := fn(&item); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if s.root != root || n.Root() != root {
		return ErrTreeReplaced
	}
	return s.modify(n, item)
}

func (s *Session) selectNodes(locs []tree.Location) ([]*tree.Node[inventory.Item], error) {
	if len(locs) == 0 {
		return nil, ErrNoSelection
	}
	return inventory.Select(s.root, locs)
}

// Copy puts the selected nodes on the clipboard together with the
// ancestors that connect them, dropping unselected descendants. Selected
// nodes that share a chain of ancestors come out as one tree.
func (s *Session) Copy(locs ...tree.Location) (forest.Forest[inventory.Item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return forest.Forest[inventory.Item]{}, err
	}

	nodes, err := s.selectNodes(locs)
	if err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	f := forest.BuildFunc(nodes, inventory.Equal)
	return f, s.writeClip(f)
}

// CopySubtrees puts the full subtree of every selected node on the
// clipboard. Nodes inside another selected subtree are not repeated.
func (s *Session) CopySubtrees(locs ...tree.Location) (forest.Forest[inventory.Item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return forest.Forest[inventory.Item]{}, err
	}

	nodes, err := s.selectNodes(locs)
	if err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	f := forest.FromNodes(s.topLevel(nodes))
	return f, s.writeClip(f)
}

// Cut copies the full subtrees of the selected nodes and deletes them as
// one undoable edit.
func (s *Session) Cut(locs ...tree.Location) (forest.Forest[inventory.Item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return forest.Forest[inventory.Item]{}, err
	}

	nodes, err := s.selectNodes(locs)
	if err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	cmd, err := edit.NewDeleteNodes(s.counter, nodes)
	if err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	f := forest.FromNodes(s.topLevel(nodes))
	if err := s.writeClip(f); err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	if _, err := s.do(cmd); err != nil {
		return forest.Forest[inventory.Item]{}, err
	}
	return f, nil
}

// topLevel drops duplicates and nodes below another selected node, and
// orders the rest as they appear in the tree.
func (s *Session) topLevel(nodes []*tree.Node[inventory.Item]) []*tree.Node[inventory.Item] {
	selected := make(map[*tree.Node[inventory.Item]]bool, len(nodes))
	for _, n := range nodes {
		selected[n] = true
	}
	type entry struct {
		node *tree.Node[inventory.Item]
		loc  tree.Location
	}
	var keep []entry
	for n := range selected {
		covered := false
		for p := n.Parent(); p != nil; p = p.Parent() {
			if selected[p] {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		loc, _ := tree.LocationOf(n, s.root)
		keep = append(keep, entry{node: n, loc: loc})
	}
	slices.SortFunc(keep, func(a, b entry) int { return slices.Compare(a.loc, b.loc) })

	out := make([]*tree.Node[inventory.Item], len(keep))
	for i, e := range keep {
		out[i] = e.node
	}
	return out
}

func (s *Session) writeClip(f forest.Forest[inventory.Item]) error {
	data, err := clipboard.Encode(f, s.format)
	if err != nil {
		return err
	}
	return s.clip.Write(string(data))
}

// Paste inserts the clipboard content under the node at parent, starting
// at index or appended when index is edit.AppendIndex. It returns the
// number of nodes inserted.
func (s *Session) Paste(parent tree.Location, index int) (int, error) {
	text, err := s.clip.Read()
	if err != nil {
		return 0, err
	}
	f, err := clipboard.Decode([]byte(text))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return 0, err
	}
	p, err := tree.Resolve(parent, s.root)
	if err != nil {
		return 0, err
	}
	cmd, err := edit.NewInsertForest(s.counter, edit.At(p, index), f, pasteDescription(f.Size()))
	if err != nil {
		return 0, err
	}
	if _, err := s.do(cmd); err != nil {
		return 0, err
	}
	return f.Size(), nil
}

func pasteDescription(n int) string {
	if n == 1 {
		return "Paste 1 item"
	}
	return fmt.Sprintf("Paste %d items", n)
}

// Undo revokes the latest edit and returns its description.
func (s *Session) Undo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return "", err
	}
	cmd, err := s.history.Undo()
	if err != nil {
		return "", err
	}
	debug.Log("session: undo %s", cmd.Description())
	return cmd.Description(), nil
}

// Redo replays the latest undone edit and returns its description.
func (s *Session) Redo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return "", err
	}
	cmd, err := s.history.Redo()
	if err != nil {
		return "", err
	}
	debug.Log("session: redo %s", cmd.Description())
	return cmd.Description(), nil
}

// Save writes the tree to its backing files. The history is kept, so edits
// made before a save can still be undone. Configured hooks run before and
// after the write; an error from a post-save hook leaves the save in place.
func (s *Session) Save() error {
	defer debug.LogEnterExit("session.Save")()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}

	var run *hooks.Executor
	if s.hooks.HasHooks() {
		run = hooks.NewExecutor(s.hooks, hooks.SaveContext{
			Target:    s.store.Name(),
			Paths:     s.store.Paths(),
			ItemCount: s.root.Count(),
			Timestamp: time.Now(),
		})
		if err := run.RunPreSave(context.Background()); err != nil {
			return err
		}
	}
	if err := s.store.Save(s.root); err != nil {
		return err
	}
	s.history.MarkClean()
	s.recordWritten()

	if run != nil {
		err := run.RunPostSave(context.Background())
		debug.Log("session: save hooks\n%s", run.Summary())
		if err != nil {
			return fmt.Errorf("saved, but %w", err)
		}
	}
	return nil
}

// Reload replaces the tree with what is on disk and clears the history.
// Unless force is set it refuses with ErrUnsavedChanges when there are
// unsaved edits.
func (s *Session) Reload(ctx context.Context, force bool) error {
	defer debug.LogEnterExit("session.Reload")()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if !force && !s.history.Clean() {
		return ErrUnsavedChanges
	}
	root, adopt, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	adopt()
	s.replace(root)
	metrics.Reloads.Inc()
	return nil
}

// Close stops the file watchers. Later calls fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watchers := s.watchers
	s.watchers = nil
	s.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
	return nil
}

// IsNothingToDo reports whether err means an empty undo or redo stack.
func IsNothingToDo(err error) bool {
	return errors.Is(err, edit.ErrNothingToUndo) || errors.Is(err, edit.ErrNothingToRedo)
}
