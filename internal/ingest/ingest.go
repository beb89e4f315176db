// Package ingest provides the record sources the streaming engine scores
// from: a synthetic traffic generator, live packet capture, capture-file
// and connection-log replay, a NATS subscriber, and a hybrid merger. All of
// them satisfy model.RecordSource.
package ingest

import (
	"errors"
	"fmt"

	"netsentry/internal/model"
)

// ErrUnknownSource is returned for a stream request naming a source the
// factory cannot build. Callers match it with errors.Is.
var ErrUnknownSource = errors.New("unknown stream source")

// Options carries the deployment-level knobs sources need that a stream
// request does not express: where to capture, which files to replay, and
// how to reach the message bus.
type Options struct {
	Interface   string // device for live capture
	PcapPath    string // capture file for pcap replay
	LogPath     string // connection log for log replay
	NATSURL     string
	NATSSubject string
	Seed        int64 // synthetic generator seed, 0 means from the clock
}

// Factory builds the source constructor the streaming engine dispatches
// stream requests through. The request's Source field picks the backend;
// an empty field means synthetic. Anonymize wraps whatever was built.
func Factory(opts Options) func(cfg model.StreamConfig) (model.RecordSource, error) {
	return func(cfg model.StreamConfig) (model.RecordSource, error) {
		src, err := build(opts, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Anonymize {
			src = WithAnonymization(src)
		}
		return src, nil
	}
}

func build(opts Options, cfg model.StreamConfig) (model.RecordSource, error) {
	switch cfg.Source {
	case "", "synthetic":
		return NewSynthetic(opts.Seed), nil
	case "capture":
		return NewLive(opts.Interface, cfg.Filter)
	case "pcap":
		return NewPcapFile(opts.PcapPath)
	case "logs":
		return NewLogReplay(opts.LogPath, true)
	case "nats":
		return NewNATS(opts.NATSURL, opts.NATSSubject)
	case "hybrid":
		live, err := NewLive(opts.Interface, cfg.Filter)
		if err != nil {
			return nil, err
		}
		return NewHybrid(live, NewSynthetic(opts.Seed)), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSource, cfg.Source)
	}
}
