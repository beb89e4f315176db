package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"netsentry/internal/dataset"
)

func main() {
	kind := flag.String("type", dataset.KindSample, "Dataset kind to generate (sample or flows)")
	rows := flag.Int("rows", 1000, "Number of rows to generate")
	seed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	out := flag.String("o", "", "Output CSV file path (required)")
	flag.Parse()

	if *out == "" {
		fmt.Fprintln(os.Stderr, "sentry-datagen: -o is required")
		flag.Usage()
		os.Exit(1)
	}

	log.Printf("Generating %d %s rows into %s...", *rows, *kind, *out)

	tbl, err := dataset.Generate(*kind, *rows, *seed)
	if err != nil {
		log.Fatalf("Failed to generate dataset: %v", err)
	}
	if err := dataset.WriteCSV(tbl, *out); err != nil {
		log.Fatalf("Failed to write dataset: %v", err)
	}

	log.Printf("Done. Wrote %d rows.", len(tbl.Rows))
}
