package events

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"netsentry/internal/model"
)

// NATSSink publishes events to the message bus, one subject per event type:
// "<prefix>.network_data" and "<prefix>.security_alert".
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSSink connects to the NATS server at url.
func NewNATSSink(url, prefix string) (*NATSSink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", url)
	return &NATSSink{nc: nc, prefix: prefix}, nil
}

// Publish sends the event as JSON. Failures are logged and dropped; the
// scoring loop never waits on the bus.
func (s *NATSSink) Publish(evt model.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("Error marshalling event: %v", err)
		return
	}
	subject := s.prefix + "." + string(evt.Type)
	if err := s.nc.Publish(subject, data); err != nil {
		log.Printf("Error publishing event to %s: %v", subject, err)
	}
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() {
	if s.nc != nil {
		s.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
