package datasource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/testutil"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

func sampleTree() *tree.Node[inventory.Item] {
	root := inventory.NewRoot("lab")
	web := tree.New(inventory.Group("web"))
	s1 := tree.New(inventory.Server("web-1", "10.0.0.1", 22))
	s2 := tree.New(inventory.Item{Kind: inventory.KindServer, Name: "web-2", Host: "10.0.0.2", Port: 2222, User: "ops", Tags: []string{"canary"}})
	_ = web.Append(s1)
	_ = web.Append(s2)
	web.Expanded = true
	_ = root.Append(web)
	_ = root.Append(tree.New(inventory.Item{Kind: inventory.KindEntity, Name: "vpn-license", Notes: "renew in May"}))
	return root
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path string
		want SourceType
	}{
		{"inv.yaml", SourceTypeYAML},
		{"inv.YML", SourceTypeYAML},
		{"inv.json", SourceTypeJSON},
		{"inv.db", SourceTypeSQLite},
		{"inv.sqlite3", SourceTypeSQLite},
	}
	for _, tt := range tests {
		got, err := Detect(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("Detect(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
	if _, err := Detect("inv.toml"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"inv.yaml", "inv.json", "inv.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleTree()
			if err := Save(path, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			testutil.AssertSameTree(t, got, want, inventory.Equal)
			testutil.AssertParentLinks(t, got)
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	for _, name := range []string{"inv.yaml", "inv.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, sampleTree()); err != nil {
				t.Fatal(err)
			}
			smaller := inventory.NewRoot("lab")
			_ = smaller.Append(tree.New(inventory.Group("only")))
			if err := Save(path, smaller); err != nil {
				t.Fatal(err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if got.Count() != 2 {
				t.Errorf("expected 2 nodes after overwrite, got %d", got.Count())
			}
		})
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inv.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	empty, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count() != 1 {
		t.Errorf("empty store should load a bare root, got %d nodes", empty.Count())
	}
	if saved, _ := store.LastSaved(); !saved.IsZero() {
		t.Errorf("LastSaved before Save = %v", saved)
	}

	root := sampleTree()
	if err := store.Save(root); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountNodes()
	if err != nil || n != root.Count() {
		t.Errorf("CountNodes = %d, %v; want %d", n, err, root.Count())
	}
	if v, _ := store.Meta("schema_version"); v != "1" {
		t.Errorf("schema_version = %q", v)
	}
	if saved, err := store.LastSaved(); err != nil || time.Since(saved) > time.Minute {
		t.Errorf("LastSaved = %v, %v", saved, err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !testutil.MustFind(t, got, "web").Expanded {
		t.Error("expanded hint was not stored")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: 1\nroot:\n  kind: group\n  name: lab\n  children:\n    - kind: server\n      name: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for invalid inventory")
	}
	if err := Save(filepath.Join(dir, "x.txt"), sampleTree()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestDiscoverAndSelect(t *testing.T) {
	dir := t.TempDir()
	old := testutil.WriteInventoryFile(t, dir, "old.yaml", sampleTree())
	fresh := sampleTree()
	_ = fresh.Append(tree.New(inventory.Group("new")))
	newest := testutil.WriteInventoryFile(t, dir, "new.yaml", fresh)
	testutil.WriteInventoryFile(t, dir, "new.yaml.bak", sampleTree())
	testutil.WriteInventoryFile(t, dir, ".hidden.yaml", sampleTree())
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	var logs []string
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
		Verbose:                true,
		Logger:                 func(msg string) { logs = append(logs, msg) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 valid sources, got %v", sources)
	}
	if sources[0].Path != newest {
		t.Errorf("freshest source should come first, got %s", sources[0].Path)
	}
	if sources[0].ItemCount != fresh.Count() {
		t.Errorf("ItemCount = %d", sources[0].ItemCount)
	}
	if !strings.Contains(strings.Join(logs, "\n"), "broken.json") {
		t.Errorf("expected validation failure log, got %v", logs)
	}

	all, err := DiscoverSources(DiscoveryOptions{Dir: dir, ValidateAfterDiscovery: true, IncludeInvalid: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("IncludeInvalid: expected 3 sources, got %d", len(all))
	}

	best, err := SelectBestSource(all)
	if err != nil || best.Path != newest {
		t.Errorf("SelectBestSource = %v, %v", best, err)
	}

	root, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if testutil.Find(root, "new") == nil {
		t.Error("loading the directory should pick the freshest inventory")
	}
}

func TestSelectBestSourcePriority(t *testing.T) {
	now := time.Now()
	sources := []DataSource{
		{Path: "a.json", Type: SourceTypeJSON, Priority: PriorityJSON, ModTime: now, Valid: true},
		{Path: "a.db", Type: SourceTypeSQLite, Priority: PrioritySQLite, ModTime: now, Valid: true},
		{Path: "a.yaml", Type: SourceTypeYAML, Priority: PriorityYAML, ModTime: now.Add(time.Second), Valid: false},
	}
	best, err := SelectBestSource(sources)
	if err != nil || best.Path != "a.db" {
		t.Errorf("SelectBestSource = %v, %v", best, err)
	}
	if _, err := SelectBestSource(sources[2:]); err == nil {
		t.Error("expected error with no valid sources")
	}
}

func TestDetectInconsistencies(t *testing.T) {
	a := sampleTree()
	b := sampleTree()

	same := DetectInconsistencies(a, b, "a", "b", DefaultDiffOptions())
	if same.HasInconsistencies() {
		t.Fatalf("identical trees differ: %s", same.Summary())
	}
	if !strings.Contains(same.Summary(), "match") {
		t.Errorf("Summary = %q", same.Summary())
	}

	web := testutil.MustFind(t, b, "web")
	w2 := inventory.Find(b, "web-2")
	it := w2.Value()
	it.Host = "10.0.0.9"
	w2.SetValue(it)
	_ = web.Append(tree.New(inventory.Server("web-3", "10.0.0.3", 22)))
	lic := testutil.MustFind(t, b, "vpn-license")
	if _, err := lic.Detach(); err != nil {
		t.Fatal(err)
	}
	// swap web-1 and web-2
	first, _ := web.RemoveAt(0)
	_ = web.Insert(1, first)

	d := DetectInconsistencies(a, b, "disk", "memory", DefaultDiffOptions())
	if got := strings.Join(d.MissingInA, ","); got != "lab/web/web-3" {
		t.Errorf("MissingInA = %q", got)
	}
	if got := strings.Join(d.MissingInB, ","); got != "lab/vpn-license" {
		t.Errorf("MissingInB = %q", got)
	}
	if len(d.Changed) != 1 || d.Changed[0].Field != "host" || d.Changed[0].ValueB != "10.0.0.9" {
		t.Errorf("Changed = %+v", d.Changed)
	}
	if got := strings.Join(d.Reordered, ","); got != "lab/web" {
		t.Errorf("Reordered = %q", got)
	}
	sum := d.Summary()
	for _, want := range []string{"disk and memory", "lab/web/web-3", "host"} {
		if !strings.Contains(sum, want) {
			t.Errorf("Summary missing %q:\n%s", want, sum)
		}
	}

	unordered := DetectInconsistencies(a, b, "disk", "memory", DiffOptions{IgnoreOrder: true, MaxDifferences: 1})
	if len(unordered.Reordered) != 0 {
		t.Errorf("IgnoreOrder still reports %v", unordered.Reordered)
	}
}

func TestCompareSources(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "inv.yaml")
	dbPath := filepath.Join(dir, "inv.db")
	if err := Save(yamlPath, sampleTree()); err != nil {
		t.Fatal(err)
	}
	if err := Save(dbPath, sampleTree()); err != nil {
		t.Fatal(err)
	}
	sa, _ := NewDataSource(yamlPath)
	sb, _ := NewDataSource(dbPath)
	d, err := CompareSources(sa, sb, DefaultDiffOptions())
	if err != nil {
		t.Fatal(err)
	}
	if d.HasInconsistencies() {
		t.Errorf("YAML and SQLite copies differ:\n%s", d.Summary())
	}
}
