package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"netsentry/internal/config"
	"netsentry/internal/ingest"
	"netsentry/internal/model"
	"netsentry/internal/probe"
	"netsentry/internal/probe/persistent"
)

func main() {
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print.")
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	iface := flag.String("iface", "", "Interface to capture from (overrides the config)")
	pcapPath := flag.String("pcap", "", "Capture file to replay instead of live capture")
	spool := flag.String("spool", "", "Also spool records to disk: 'gob' or 'text'")
	spoolDir := flag.String("spool-dir", "data/spool", "Directory for spool files")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	switch *mode {
	case "pub":
		runPublisher(cfg, *iface, *pcapPath, *spool, *spoolDir)
	case "sub":
		runSubscriber(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runPublisher captures records and ships them to NATS, optionally spooling
// them to disk alongside.
func runPublisher(cfg *config.Config, iface, pcapPath, spool, spoolDir string) {
	// Pick the record source: a capture-file replay or live capture.
	var src model.RecordSource
	var err error
	if pcapPath != "" {
		src, err = ingest.NewPcapFile(pcapPath)
	} else {
		if iface == "" {
			iface = cfg.Capture.Interface
		}
		src, err = ingest.NewLive(iface, cfg.Stream.Filter)
	}
	if err != nil {
		log.Fatalf("Failed to open record source: %v", err)
	}
	defer src.Close()

	pub, err := probe.NewPublisher(cfg.NATS.URL, cfg.NATS.RecordSubject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	var worker *persistent.Worker
	if spool != "" {
		worker, err = persistent.NewWorker(persistent.Options{Dir: spoolDir, Encoding: spool})
		if err != nil {
			log.Fatalf("Failed to start spool worker: %v", err)
		}
	}

	log.Printf("Publishing records from %s to '%s'...", src.Name(), cfg.NATS.RecordSubject)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		published := 0
		for {
			rec, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				log.Println("Record source drained.")
				return
			}
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				log.Printf("Failed to read record: %v", err)
				continue
			}
			if err := pub.Publish(&rec); err != nil {
				log.Printf("Failed to publish record: %v", err)
			}
			if worker != nil {
				worker.Enqueue(&rec)
			}
			published++
			if published%1000 == 0 {
				log.Printf("%d records published...", published)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		log.Println("Shutdown signal received, cleaning up...")
		cancel()
		<-done
	case <-done:
	}
	if worker != nil {
		worker.Stop()
	}
}

// runSubscriber prints every record arriving on the bus.
func runSubscriber(cfg *config.Config) {
	sub, err := probe.NewSubscriber(cfg.NATS.URL, cfg.NATS.RecordSubject)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(rec model.Record) {
		log.Printf("Received record: %s:%d -> %s:%d proto=%s service=%s size=%d",
			rec.SrcIP, rec.SrcPort, rec.DstIP, rec.DstPort, rec.Protocol, rec.Service, rec.Size)
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
