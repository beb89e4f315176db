package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/nats-io/nats.go"

	"netsentry/internal/model"
)

// natsBufferSize bounds how many decoded records queue between the NATS
// handler and the stream loop. Messages past that are dropped.
const natsBufferSize = 256

// NATSSource consumes JSON-encoded records from a NATS subject.
type NATSSource struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	records chan model.Record

	closeOnce sync.Once
	done      chan struct{}
}

// NewNATS connects to url and subscribes to subject. Messages that fail to
// decode are logged and dropped.
func NewNATS(url, subject string) (*NATSSource, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", url)

	s := &NATSSource{
		nc:      nc,
		records: make(chan model.Record, natsBufferSize),
		done:    make(chan struct{}),
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var rec model.Record
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			log.Printf("Error unmarshalling record: %v", err)
			return
		}
		select {
		case s.records <- rec:
		case <-s.done:
		default:
			// Consumer is behind; shed the message rather than block NATS.
		}
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return s, nil
}

func (s *NATSSource) Next(ctx context.Context) (model.Record, error) {
	select {
	case <-ctx.Done():
		return model.Record{}, ctx.Err()
	case <-s.done:
		return model.Record{}, io.EOF
	case rec := <-s.records:
		return rec, nil
	}
}

func (s *NATSSource) Name() string { return "nats" }

func (s *NATSSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.sub != nil {
			s.sub.Unsubscribe()
		}
		s.nc.Close()
		log.Println("NATS connection closed.")
	})
	return nil
}
