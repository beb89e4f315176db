package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"netsentry/internal/config"
	"netsentry/internal/query"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	mode := flag.String("mode", "threats", "Query mode: 'threats', 'trace', 'runs', or 'alerts' (via HTTP API)")
	since := flag.Duration("since", time.Hour, "How far back to look")
	limit := flag.Int("limit", 10, "Maximum number of rows to return")
	traceKey := flag.String("key", "", "Trace filter as key=value pairs (e.g. \"SrcIP=10.0.0.5,Service=http\")")
	apiURL := flag.String("api", "http://localhost:8080", "API base URL for the 'alerts' mode")

	flag.Parse()

	if *mode == "alerts" {
		queryAlertsViaAPI(*apiURL, *limit)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	querier, err := query.NewClickHouseQuerier(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch *mode {
	case "threats":
		doThreatQuery(ctx, querier, time.Now().Add(-*since), *limit)
	case "trace":
		if *traceKey == "" {
			log.Fatal("Error: -key flag is required for trace mode")
		}
		doTraceQuery(ctx, querier, *traceKey, time.Now().Add(-*since))
	case "runs":
		doRunsQuery(ctx, querier, *limit)
	default:
		log.Fatalf("Invalid mode: %s. Use 'threats', 'trace', 'runs' or 'alerts'.", *mode)
	}
}

func doThreatQuery(ctx context.Context, querier query.Querier, since time.Time, limit int) {
	sources, err := querier.TopThreatSources(ctx, since, limit)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	if len(sources) == 0 {
		log.Println("No threat traffic found for the specified window.")
		return
	}

	log.Println("--- Top Threat Sources ---")
	for _, src := range sources {
		fmt.Printf("SrcIP: %s\n", src.SrcIP)
		fmt.Printf("  Events: %d (high: %d)\n", src.Events, src.HighEvents)
		fmt.Printf("  Probability: avg %.3f, max %.3f\n", src.AvgProbability, src.MaxProbability)
		fmt.Printf("  LastSeen: %s\n", src.LastSeen.Format(time.RFC3339))
		fmt.Println("---------------------")
	}
}

func doTraceQuery(ctx context.Context, querier query.Querier, rawKey string, since time.Time) {
	keys, err := parseTraceKeys(rawKey)
	if err != nil {
		log.Fatalf("Invalid -key value: %v", err)
	}

	trace, err := querier.TraceTraffic(ctx, keys, since)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	if trace.Events == 0 {
		log.Println("No data found for the specified criteria.")
		return
	}

	log.Println("--- Traffic Trace ---")
	fmt.Printf("FirstSeen: %s\n", trace.FirstSeen.Format(time.RFC3339))
	fmt.Printf("LastSeen:  %s\n", trace.LastSeen.Format(time.RFC3339))
	fmt.Printf("Events: %d (threats: %d)\n", trace.Events, trace.Threats)
	fmt.Printf("Distinct destinations: %d\n", trace.Destinations)
	fmt.Printf("Average probability: %.3f\n", trace.AvgProbability)
}

func doRunsQuery(ctx context.Context, querier query.Querier, limit int) {
	runs, err := querier.TrainingHistory(ctx, limit)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	if len(runs) == 0 {
		log.Println("No training runs recorded yet.")
		return
	}

	log.Println("--- Training History ---")
	for _, run := range runs {
		fmt.Printf("Run: %s (%s)\n", run.RunID, run.StartedAt.Format(time.RFC3339))
		fmt.Printf("  Dataset: %s, target: %s\n", run.Dataset, run.Target)
		fmt.Printf("  Best: %s (accuracy %.4f) across %d variants\n", run.BestModel, run.BestAccuracy, run.Variants)
		fmt.Println("---------------------")
	}
}

// parseTraceKeys turns "SrcIP=10.0.0.5,Service=http" into a filter map. The
// querier validates the column names.
func parseTraceKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed pair %q, expected key=value", pair)
		}
		keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return keys, nil
}

func queryAlertsViaAPI(baseURL string, limit int) {
	apiURL := fmt.Sprintf("%s/api/v1/alerts?limit=%d", strings.TrimRight(baseURL, "/"), limit)

	log.Printf("Sending request to %s", apiURL)

	resp, err := http.Get(apiURL)
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	err = json.Indent(&prettyJSON, respBody, "", "  ")
	if err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}

	log.Println("---")
	fmt.Println(prettyJSON.String())
}
