package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"netsentry/internal/registry"
)

// Inspects a saved model snapshot: point it at a snapshot directory, or at
// the model root to pick the most recent one.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <snapshot_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]

	if _, err := os.Stat(filepath.Join(dir, "pipeline.gob")); err != nil {
		latest, err := registry.LatestDir(dir)
		if err != nil || latest == "" {
			log.Fatalf("No snapshot found under %s", dir)
		}
		dir = latest
	}

	reg, err := registry.LoadDir(dir)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	fmt.Printf("Snapshot: %s\n", dir)
	fmt.Printf("Ensemble: %v\n", reg.HasEnsemble())
	fmt.Println("Models:")

	results := reg.Results()
	names := reg.Names()
	sort.Strings(names)
	for _, name := range names {
		res, ok := results[name]
		if !ok {
			fmt.Printf("  %-22s (no evaluation recorded)\n", name)
			continue
		}
		fmt.Printf("  %-22s accuracy=%.4f f1=%.4f\n", name, res.Accuracy, res.F1)
	}
}
