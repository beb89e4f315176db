package model

import "context"

// ResultWriter is the write-only persistence boundary. The core hands
// scoring results, alerts, and finished training runs to it and never reads
// anything back. Implementations must not block the scoring loop: Record
// methods enqueue and drop on backpressure rather than wait.
type ResultWriter interface {
	// RecordScore persists one scoring result. Fire-and-forget.
	RecordScore(res ScoringResult)

	// RecordAlert persists one alert. Fire-and-forget.
	RecordAlert(alert Alert)

	// RecordTrainingRun persists a completed panel training run. Called
	// from the training path, so it may work synchronously.
	RecordTrainingRun(ctx context.Context, run TrainingRun) error

	// Close flushes buffered writes and releases the connection.
	Close() error
}
