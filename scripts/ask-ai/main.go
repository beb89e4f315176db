package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
)

func main() {
	// 1. Parse command-line flags
	apiURL := flag.String("api", "http://localhost:8080", "The API base URL")
	prompt := flag.String("prompt", "", "The prompt to send to the AI model")
	flag.Parse()

	// 2. If prompt is empty, read it from non-flag arguments
	if *prompt == "" {
		if flag.NArg() > 0 {
			*prompt = strings.Join(flag.Args(), " ")
		} else {
			log.Fatalf("Error: A prompt is required. Use -prompt or provide it as an argument.")
		}
	}

	// 3. Send the prompt to the streaming analysis endpoint
	body, err := json.Marshal(map[string]string{"prompt": *prompt})
	if err != nil {
		log.Fatalf("Error marshalling request body: %v", err)
	}

	log.Println("Sending prompt to AI... (waiting for stream)")
	resp, err := http.Post(strings.TrimRight(*apiURL, "/")+"/api/v1/ai/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Error calling analyze endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(msg))
	}

	// 4. Print the stream as it arrives
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		log.Fatalf("Error receiving stream: %v", err)
	}
	fmt.Println() // Add a newline for clean terminal output
}
