// Package pcap reads capture files into traffic records. It decodes with
// the pure-Go pcapgo reader, so offline analysis needs no libpcap.
package pcap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket/pcapgo"

	"netsentry/internal/model"
	"netsentry/internal/protocol"
)

// Reader streams records out of a pcap file.
type Reader struct {
	f *os.File
	r *pcapgo.Reader
}

// NewReader opens a pcap file for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file: %w", err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}
	return &Reader{f: f, r: r}, nil
}

// Next returns the next decodable record, skipping frames the decoder
// rejects. io.EOF marks the end of the file.
func (r *Reader) Next() (model.Record, error) {
	for {
		data, ci, err := r.r.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return model.Record{}, io.EOF
			}
			return model.Record{}, fmt.Errorf("failed to read packet: %w", err)
		}
		rec, perr := protocol.ParsePacket(data, ci.Timestamp)
		if perr != nil {
			// Unsupported frames are expected in real captures.
			continue
		}
		return rec, nil
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// ReadAll slurps every decodable record from a capture file.
func ReadAll(path string) ([]model.Record, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var recs []model.Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
