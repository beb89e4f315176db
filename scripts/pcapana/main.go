package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"netsentry/pkg/pcap"
)

// Prints the first few records of a capture file followed by a protocol
// and top-talker summary. Useful for checking what a pcap contains before
// replaying it through the scoring loop.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := os.Args[1]

	reader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	protocols := make(map[string]int)
	services := make(map[string]int)
	sources := make(map[string]int)

	total := 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Read error: %v", err)
		}

		if total < 5 {
			fmt.Printf("[%s] %s:%d -> %s:%d proto=%s service=%s len=%d\n",
				rec.Timestamp.Format("15:04:05.000"),
				rec.SrcIP, rec.SrcPort,
				rec.DstIP, rec.DstPort,
				rec.Protocol, rec.Service, rec.Size,
			)
		}

		protocols[rec.Protocol]++
		services[rec.Service]++
		sources[rec.SrcIP]++
		total++
	}

	fmt.Printf("\nTotal records: %d\n", total)
	fmt.Printf("Protocols: %v\n", protocols)
	fmt.Printf("Services:  %v\n", services)

	fmt.Println("Top sources:")
	for _, src := range topKeys(sources, 5) {
		fmt.Printf("  %-18s %d\n", src, sources[src])
	}
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
