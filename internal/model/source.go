package model

import "context"

// RecordSource is a pluggable stream of traffic records feeding the scoring
// loop. Next blocks until a record is available, the context is cancelled,
// or the source is permanently drained.
type RecordSource interface {
	// Next returns the next record. It must honor ctx cancellation and
	// return ctx.Err() promptly when cancelled. A permanently drained
	// source returns io.EOF, which stops the loop cleanly.
	Next(ctx context.Context) (Record, error)

	// Name is the source tag attached to scoring results.
	Name() string

	// Close releases underlying handles (capture devices, files,
	// subscriptions). Safe to call more than once.
	Close() error
}
