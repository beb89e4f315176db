// Package storage persists scoring results, alerts, and training runs to
// ClickHouse. Writes from the scoring loop are buffered and flushed in
// batches so the loop never waits on the database.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"netsentry/internal/config"
	"netsentry/internal/model"
)

const createScoringTable = `
CREATE TABLE IF NOT EXISTS scoring_events (
    Timestamp   DateTime,
    Source      String,
    SrcIP       String,
    DstIP       String,
    Protocol    String,
    Service     String,
    Prediction  UInt8,
    Probability Float64,
    ThreatLevel String,
    Model       String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Source, Timestamp);
`

const createAlertsTable = `
CREATE TABLE IF NOT EXISTS alerts (
    ID          Int64,
    Timestamp   DateTime,
    ThreatLevel String,
    Probability Float64,
    Message     String,
    Record      String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, ID);
`

const createTrainingRunsTable = `
CREATE TABLE IF NOT EXISTS training_runs (
    RunID        String,
    Dataset      String,
    Target       String,
    StartedAt    DateTime,
    Model        String,
    Accuracy     Float64,
    Precision    Float64,
    Recall       Float64,
    F1           Float64,
    AUC          Float64,
    TrainSeconds Float64,
    Error        String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(StartedAt)
ORDER BY (RunID, Model);
`

// queueSize bounds the scoring-loop handoff. Results past it are dropped.
const queueSize = 10000

// flushBatchSize forces a flush before the ticker when the buffer gets big.
const flushBatchSize = 500

// ClickHouseWriter implements model.ResultWriter on ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration

	scores chan model.ScoringResult
	alerts chan model.Alert
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewClickHouseWriter connects, ensures the tables exist, and starts the
// background flusher.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createScoringTable, createAlertsTable, createTrainingRunsTable} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")

	interval, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil || interval <= 0 {
		interval = 5 * time.Second
	}

	w := &ClickHouseWriter{
		conn:     conn,
		interval: interval,
		scores:   make(chan model.ScoringResult, queueSize),
		alerts:   make(chan model.Alert, queueSize),
		stop:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// RecordScore enqueues one scoring result, dropping it when the queue is
// full.
func (w *ClickHouseWriter) RecordScore(res model.ScoringResult) {
	select {
	case w.scores <- res:
	default:
		log.Println("ClickHouse writer: score queue is full, dropping result.")
	}
}

// RecordAlert enqueues one alert, dropping it when the queue is full.
func (w *ClickHouseWriter) RecordAlert(alert model.Alert) {
	select {
	case w.alerts <- alert:
	default:
		log.Println("ClickHouse writer: alert queue is full, dropping alert.")
	}
}

// RecordTrainingRun writes the panel results synchronously, one row per
// trained variant.
func (w *ClickHouseWriter) RecordTrainingRun(ctx context.Context, run model.TrainingRun) error {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO training_runs")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, res := range run.Results {
		err = batch.Append(
			run.ID,
			run.Dataset,
			run.Target,
			run.StartedAt,
			res.Model,
			res.Accuracy,
			res.Precision,
			res.Recall,
			res.F1,
			res.AUC,
			res.TrainTime,
			res.Err,
		)
		if err != nil {
			return fmt.Errorf("failed to append run row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Wrote training run %s (%d variants) to ClickHouse", run.ID, len(run.Results))
	return nil
}

// Close flushes what is buffered and closes the connection.
func (w *ClickHouseWriter) Close() error {
	close(w.stop)
	w.wg.Wait()
	return w.conn.Close()
}

func (w *ClickHouseWriter) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var scores []model.ScoringResult
	var alerts []model.Alert

	flush := func() {
		if len(scores) > 0 {
			if err := w.flushScores(scores); err != nil {
				log.Printf("ClickHouse writer: failed to flush scores: %v", err)
			}
			scores = scores[:0]
		}
		if len(alerts) > 0 {
			if err := w.flushAlerts(alerts); err != nil {
				log.Printf("ClickHouse writer: failed to flush alerts: %v", err)
			}
			alerts = alerts[:0]
		}
	}

	for {
		select {
		case res := <-w.scores:
			scores = append(scores, res)
			if len(scores) >= flushBatchSize {
				flush()
			}
		case alert := <-w.alerts:
			alerts = append(alerts, alert)
			if len(alerts) >= flushBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.stop:
			// Drain whatever the loop already handed over, then flush once.
			for {
				select {
				case res := <-w.scores:
					scores = append(scores, res)
				case alert := <-w.alerts:
					alerts = append(alerts, alert)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *ClickHouseWriter) flushScores(scores []model.ScoringResult) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO scoring_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, res := range scores {
		err = batch.Append(
			res.Timestamp,
			res.Source,
			res.Record.SrcIP,
			res.Record.DstIP,
			res.Record.Protocol,
			res.Record.Service,
			uint8(res.Prediction),
			res.Probability,
			string(res.ThreatLevel),
			res.Model,
		)
		if err != nil {
			return fmt.Errorf("failed to append score row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (w *ClickHouseWriter) flushAlerts(alerts []model.Alert) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO alerts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, alert := range alerts {
		record, err := json.Marshal(alert.Record)
		if err != nil {
			record = []byte("{}")
		}
		err = batch.Append(
			alert.ID,
			alert.Timestamp,
			string(alert.ThreatLevel),
			alert.Probability,
			alert.Message,
			string(record),
		)
		if err != nil {
			return fmt.Errorf("failed to append alert row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}
