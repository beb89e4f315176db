package ingest

import (
	"context"

	"netsentry/internal/model"
	"netsentry/pkg/pcap"
)

// PcapFile adapts a capture-file reader to the record source contract. The
// source drains with io.EOF when the file runs out.
type PcapFile struct {
	r *pcap.Reader
}

// NewPcapFile opens a capture file for replay.
func NewPcapFile(path string) (*PcapFile, error) {
	r, err := pcap.NewReader(path)
	if err != nil {
		return nil, err
	}
	return &PcapFile{r: r}, nil
}

func (p *PcapFile) Next(ctx context.Context) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	return p.r.Next()
}

func (p *PcapFile) Name() string { return "pcap" }
func (p *PcapFile) Close() error { return p.r.Close() }
