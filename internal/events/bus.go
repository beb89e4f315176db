// Package events fans scoring results and alerts out to observers: an
// in-process bus, a WebSocket hub for dashboards, and a NATS publisher for
// downstream consumers.
package events

import (
	"sync"

	"netsentry/internal/model"
)

// Bus multiplexes events to every attached sink. Publish never blocks on
// the bus itself; each sink carries its own backpressure policy.
type Bus struct {
	mu    sync.RWMutex
	sinks []model.EventSink
}

// NewBus builds a bus over the given sinks. More can be attached later.
func NewBus(sinks ...model.EventSink) *Bus {
	return &Bus{sinks: sinks}
}

// Attach adds a sink to the fanout.
func (b *Bus) Attach(sink model.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish hands the event to every sink in attach order.
func (b *Bus) Publish(evt model.Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	for _, sink := range sinks {
		sink.Publish(evt)
	}
}
