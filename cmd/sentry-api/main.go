package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netsentry/internal/ai"
	"netsentry/internal/config"
	"netsentry/internal/dataset"
	"netsentry/internal/events"
	"netsentry/internal/ingest"
	"netsentry/internal/model"
	"netsentry/internal/notify"
	"netsentry/internal/registry"
	"netsentry/internal/server"
	"netsentry/internal/storage"
	"netsentry/internal/stream"
	"netsentry/internal/train"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	datasets, err := dataset.NewManager(cfg.Server.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	// Restore the latest trained generation, if one was saved.
	reg := registry.New()
	if dir, err := registry.LatestDir(cfg.Training.ModelDir); err != nil {
		log.Printf("Failed to scan model directory: %v", err)
	} else if dir != "" {
		loaded, err := registry.LoadDir(dir)
		if err != nil {
			log.Printf("Failed to load model snapshot from %s: %v", dir, err)
		} else {
			reg = loaded
			log.Printf("Loaded model snapshot from %s", dir)
		}
	}

	// Persistence is best-effort: a missing store never blocks the API.
	var writer model.ResultWriter
	if cfg.ClickHouse.Enabled {
		ch, err := storage.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			log.Printf("ClickHouse persistence disabled: %v", err)
		} else {
			writer = ch
			defer ch.Close()
		}
	}

	trainer := train.New(reg, writer)
	trainer.TestFraction = cfg.Training.TestSize
	trainer.SnapshotDir = cfg.Training.ModelDir

	// Event fan-out: WebSocket clients always, NATS when enabled.
	hub := events.NewHub()
	defer hub.Close()
	bus := events.NewBus(hub)
	if cfg.NATS.Enabled {
		sink, err := events.NewNATSSink(cfg.NATS.URL, cfg.NATS.EventPrefix)
		if err != nil {
			log.Printf("NATS event publishing disabled: %v", err)
		} else {
			bus.Attach(sink)
			defer sink.Close()
		}
	}

	sources := ingest.Factory(ingest.Options{
		Interface:   cfg.Capture.Interface,
		PcapPath:    cfg.Capture.PcapPath,
		LogPath:     cfg.Capture.LogPath,
		NATSURL:     cfg.NATS.URL,
		NATSSubject: cfg.NATS.RecordSubject,
		Seed:        cfg.Capture.Seed,
	})
	engine := stream.New(reg, bus, writer, sources)
	defer engine.Stop()

	// A configured default source starts scoring immediately.
	if cfg.Stream.Source != "" {
		streamCfg, err := cfg.Stream.ToStreamConfig()
		if err != nil {
			log.Fatalf("Invalid stream defaults: %v", err)
		}
		if _, err := engine.Start(streamCfg); err != nil {
			log.Printf("Failed to start default stream: %v", err)
		}
	}

	var streamAnalyzer server.StreamAnalyzer
	var digestAnalyzer model.Analyzer
	if cfg.AI.Enabled {
		analyzer, err := ai.NewAnalyzer(&cfg.AI)
		if err != nil {
			log.Fatalf("Failed to create AI analyzer: %v", err)
		}
		streamAnalyzer = analyzer
		digestAnalyzer = analyzer
	}

	if cfg.Alerting.Enabled {
		interval, err := time.ParseDuration(cfg.Alerting.DigestInterval)
		if err != nil {
			log.Fatalf("Invalid digest interval: %v", err)
		}
		digest := notify.NewDigest(engine, notify.NewEmailNotifier(cfg.Alerting.SMTP), digestAnalyzer, interval, cfg.Alerting.MinProbability)
		go digest.Start()
		defer digest.Stop()
	}

	apiHandler := server.New(reg, trainer, engine, datasets, hub, streamAnalyzer)
	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: apiHandler.Router(),
	}

	go func() {
		log.Printf("API server starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", httpServer.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}
