// Package probe implements the remote capture agent: it ships normalized
// traffic records over NATS to a central scoring engine, with an optional
// on-disk spool.
package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"netsentry/internal/model"
)

// Publisher publishes traffic records to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server.
func NewPublisher(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Publish serializes a record to JSON and publishes it to the configured
// NATS subject.
func (p *Publisher) Publish(rec *model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
