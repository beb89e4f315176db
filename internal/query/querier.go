// Package query is the read side of the ClickHouse store: offline
// investigation of scoring events and training history written by the
// storage package.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"netsentry/internal/config"
)

// ThreatSource summarizes the scored traffic attributed to one source
// address.
type ThreatSource struct {
	SrcIP          string
	Events         uint64
	HighEvents     uint64
	AvgProbability float64
	MaxProbability float64
	LastSeen       time.Time
}

// TrafficTrace is the lifecycle of the traffic matching a trace filter.
type TrafficTrace struct {
	FirstSeen      time.Time
	LastSeen       time.Time
	Events         uint64
	Threats        uint64
	Destinations   uint64
	AvgProbability float64
}

// TrainingSummary is one training run reduced to its best variant.
type TrainingSummary struct {
	RunID        string
	Dataset      string
	Target       string
	StartedAt    time.Time
	BestModel    string
	BestAccuracy float64
	Variants     uint64
}

// Querier defines the interface for querying stored scoring data.
type Querier interface {
	TopThreatSources(ctx context.Context, since time.Time, limit int) ([]ThreatSource, error)
	TraceTraffic(ctx context.Context, keys map[string]string, since time.Time) (*TrafficTrace, error)
	TrainingHistory(ctx context.Context, limit int) ([]TrainingSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

// TopThreatSources ranks source addresses by how much threat traffic the
// scoring loop attributed to them since the given time.
func (q *clickhouseQuerier) TopThreatSources(ctx context.Context, since time.Time, limit int) ([]ThreatSource, error) {
	const query = `
		SELECT
			SrcIP,
			count(*) AS Events,
			countIf(ThreatLevel = 'HIGH') AS HighEvents,
			avg(Probability) AS AvgProbability,
			max(Probability) AS MaxProbability,
			max(Timestamp) AS LastSeen
		FROM scoring_events
		WHERE Prediction = 1 AND Timestamp >= ?
		GROUP BY SrcIP
		ORDER BY HighEvents DESC, MaxProbability DESC
		LIMIT ?
	`

	rows, err := q.conn.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var sources []ThreatSource
	for rows.Next() {
		var src ThreatSource
		if err := rows.Scan(&src.SrcIP, &src.Events, &src.HighEvents, &src.AvgProbability, &src.MaxProbability, &src.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan threat source: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// TraceTraffic summarizes the lifecycle of the scored traffic matching the
// given column filters.
func (q *clickhouseQuerier) TraceTraffic(ctx context.Context, keys map[string]string, since time.Time) (*TrafficTrace, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			min(Timestamp) AS FirstSeen,
			max(Timestamp) AS LastSeen,
			count(*) AS Events,
			countIf(Prediction = 1) AS Threats,
			uniqExact(DstIP) AS Destinations,
			avg(Probability) AS AvgProbability
		FROM scoring_events
	`)

	var whereClauses []string
	args := []interface{}{}

	for key, value := range keys {
		// Basic validation to prevent arbitrary column injection
		switch key {
		case "SrcIP", "DstIP", "Protocol", "Service", "Model", "Source":
			whereClauses = append(whereClauses, fmt.Sprintf("%s = ?", key))
			args = append(args, value)
		default:
			return nil, fmt.Errorf("unsupported trace key: %s, only SrcIP, DstIP, Protocol, Service, Model, Source are allowed", key)
		}
	}

	if !since.IsZero() {
		whereClauses = append(whereClauses, "Timestamp >= ?")
		args = append(args, since)
	}

	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	var trace TrafficTrace
	row := q.conn.QueryRow(ctx, queryBuilder.String(), args...)
	if err := row.Scan(&trace.FirstSeen, &trace.LastSeen, &trace.Events, &trace.Threats, &trace.Destinations, &trace.AvgProbability); err != nil {
		return nil, fmt.Errorf("failed to scan traffic trace: %w", err)
	}

	return &trace, nil
}

// TrainingHistory returns the most recent training runs, each reduced to the
// variant with the best held-out accuracy.
func (q *clickhouseQuerier) TrainingHistory(ctx context.Context, limit int) ([]TrainingSummary, error) {
	const query = `
		SELECT
			RunID,
			any(Dataset) AS Dataset,
			any(Target) AS Target,
			min(StartedAt) AS Started,
			argMax(Model, Accuracy) AS BestModel,
			max(Accuracy) AS BestAccuracy,
			count(*) AS Variants
		FROM training_runs
		WHERE Error = ''
		GROUP BY RunID
		ORDER BY Started DESC
		LIMIT ?
	`

	rows, err := q.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var runs []TrainingSummary
	for rows.Next() {
		var run TrainingSummary
		if err := rows.Scan(&run.RunID, &run.Dataset, &run.Target, &run.StartedAt, &run.BestModel, &run.BestAccuracy, &run.Variants); err != nil {
			return nil, fmt.Errorf("failed to scan training summary: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
