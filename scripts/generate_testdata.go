//go:build ignore

// generate_testdata.go creates inventories for benchmarking and manual
// testing of large trees.
// Usage: go run scripts/generate_testdata.go
//
// Creates, in YAML and SQLite form:
//
//	testdata/benchmark/small.yaml   (10 groups x 10 servers)
//	testdata/benchmark/medium.yaml  (50 groups x 20 servers)
//	testdata/benchmark/large.yaml   (200 groups x 25 servers)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/netinv/internal/datasource"
	"github.com/vanderheijden86/netinv/pkg/testutil"
)

type datasetSpec struct {
	name    string
	groups  int
	servers int
}

var datasets = []datasetSpec{
	{"small", 10, 10},
	{"medium", 50, 20},
	{"large", 200, 25},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s inventory (%d groups x %d servers)...\n", ds.name, ds.groups, ds.servers)

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(ds.groups * ds.servers) // reproducible per size
		root := testutil.New(cfg).Inventory(ds.groups, ds.servers)

		for _, ext := range []string{".yaml", ".db"} {
			path := filepath.Join(outputDir, ds.name+ext)
			_ = os.Remove(path)
			if err := datasource.Save(path, root); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
				os.Exit(1)
			}
			info, _ := os.Stat(path)
			fmt.Printf("  Written %s (%d bytes, %d items)\n", path, info.Size(), root.Count())
		}
	}

	fmt.Println("\nDone! Inventories created in", outputDir)
}
