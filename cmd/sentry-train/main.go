package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"netsentry/internal/config"
	"netsentry/internal/dataset"
	"netsentry/internal/ml"
	"netsentry/internal/model"
	"netsentry/internal/registry"
	"netsentry/internal/storage"
	"netsentry/internal/train"
)

func main() {
	dataPath := flag.String("data", "", "Path to a labeled CSV dataset (required)")
	target := flag.String("target", "", "Target column name (autodetected when empty)")
	saveDir := flag.String("save", "", "Directory for the trained model snapshot (empty disables saving)")
	configPath := flag.String("config", "", "Optional config file enabling ClickHouse persistence")
	flag.Parse()

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "sentry-train: -data is required")
		flag.Usage()
		os.Exit(1)
	}

	// 1. Load the dataset.
	tbl, err := dataset.LoadCSV(*dataPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Loaded %d rows from %s", len(tbl.Rows), *dataPath)

	// 2. Open optional ClickHouse persistence for training runs.
	var writer model.ResultWriter
	if *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		if cfg.ClickHouse.Enabled {
			ch, err := storage.NewClickHouseWriter(cfg.ClickHouse)
			if err != nil {
				log.Printf("ClickHouse persistence disabled: %v", err)
			} else {
				writer = ch
				defer ch.Close()
			}
		}
		if *saveDir == "" {
			*saveDir = cfg.Training.ModelDir
		}
	}

	// 3. Train the full model panel.
	reg := registry.New()
	trainer := train.New(reg, writer)
	trainer.SnapshotDir = *saveDir

	name := filepath.Base(*dataPath)
	results, err := trainer.TrainTable(context.Background(), tbl, *target, name)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	// 4. Print the evaluation table, ensemble last.
	printResults(results)
}

func printResults(results map[string]model.EvaluationResult) {
	names := make([]string, 0, len(results))
	for name := range results {
		if name != ml.EnsembleName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := results[ml.EnsembleName]; ok {
		names = append(names, ml.EnsembleName)
	}

	fmt.Printf("%-22s %9s %10s %8s %9s %8s %8s\n",
		"MODEL", "ACCURACY", "PRECISION", "RECALL", "F1", "AUC", "TIME")
	for _, name := range names {
		res := results[name]
		if res.Failed() {
			fmt.Printf("%-22s failed: %s\n", name, res.Err)
			continue
		}
		auc := "-"
		if res.HasAUC {
			auc = fmt.Sprintf("%.4f", res.AUC)
		}
		fmt.Printf("%-22s %9.4f %10.4f %8.4f %9.4f %8s %7.2fs\n",
			name, res.Accuracy, res.Precision, res.Recall, res.F1, auc, res.TrainTime)
	}
}
