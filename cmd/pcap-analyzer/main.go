package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"netsentry/internal/config"
	"netsentry/internal/model"
	"netsentry/internal/registry"
	"netsentry/pkg/pcap"
)

// Scores a capture file offline against the most recent trained snapshot
// and prints a threat summary, without going through the API server.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	// 1. Get pcap file path from command-line arguments
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./cmd/pcap-analyzer/main.go [-config path] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. Load the most recent trained snapshot
	dir, err := registry.LatestDir(cfg.Training.ModelDir)
	if err != nil || dir == "" {
		log.Fatalf("No trained model snapshot under %s; train first", cfg.Training.ModelDir)
	}
	reg, err := registry.LoadDir(dir)
	if err != nil {
		log.Fatalf("Failed to load model snapshot: %v", err)
	}
	if !reg.HasEnsemble() {
		log.Fatalf("Snapshot %s has no usable ensemble", dir)
	}
	log.Printf("Loaded model snapshot from %s", dir)

	pcapReader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer pcapReader.Close()
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	// 4. Score every record in the capture
	pipe := reg.Pipeline()
	levels := make(map[model.ThreatLevel]int)
	threatSources := make(map[string]int)

	total, threats, failed := 0, 0, 0
	for {
		rec, err := pcapReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read capture: %v", err)
		}
		total++

		vec, err := pipe.Vectorize(&rec)
		if err != nil {
			failed++
			continue
		}
		probs, err := reg.PredictProba([][]float64{vec}, "")
		if err != nil || len(probs) == 0 {
			failed++
			continue
		}

		probability := pipe.AttackProbability(probs[0])
		level := model.ThreatLevelFor(probability)
		levels[level]++
		if probability > 0.5 {
			threats++
			threatSources[rec.SrcIP]++
		}
	}

	// 5. Print the summary
	fmt.Printf("\nAnalyzed %d records (%d not scorable)\n", total, failed)
	fmt.Printf("Threats: %d (%.1f%%)\n", threats, percentage(threats, total))
	fmt.Printf("Threat levels: HIGH=%d MEDIUM=%d LOW=%d\n",
		levels[model.ThreatHigh], levels[model.ThreatMedium], levels[model.ThreatLow])

	if len(threatSources) > 0 {
		fmt.Println("Top threat sources:")
		for _, src := range topKeys(threatSources, 5) {
			fmt.Printf("  %-18s %d\n", src, threatSources[src])
		}
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
