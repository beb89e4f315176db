package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"netsentry/internal/model"
	"netsentry/internal/protocol"
)

// captureSnapLen bounds how much of each frame the kernel hands over.
const captureSnapLen = 1600

// Live captures packets from a network interface and turns each IPv4 frame
// into a record. Frames that do not parse are skipped.
type Live struct {
	handle  *pcap.Handle
	packets chan gopacket.Packet

	closeOnce sync.Once
}

// NewLive opens iface in promiscuous mode and applies the BPF expression
// derived from filter, when it has one.
func NewLive(iface string, filter model.FilterConfig) (*Live, error) {
	handle, err := pcap.OpenLive(iface, captureSnapLen, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface %s: %w", iface, err)
	}
	if expr := BuildBPF(filter); expr != "" {
		if err := handle.SetBPFFilter(expr); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter %q: %w", expr, err)
		}
		log.Printf("Capture filter applied: %s", expr)
	}
	src := gopacket.NewPacketSource(handle, handle.LinkType())
	return &Live{handle: handle, packets: src.Packets()}, nil
}

func (l *Live) Next(ctx context.Context) (model.Record, error) {
	for {
		select {
		case <-ctx.Done():
			return model.Record{}, ctx.Err()
		case pkt, ok := <-l.packets:
			if !ok {
				return model.Record{}, io.EOF
			}
			rec, err := protocol.ParsePacket(pkt.Data(), pkt.Metadata().Timestamp)
			if err != nil {
				continue
			}
			return rec, nil
		}
	}
}

func (l *Live) Name() string { return "capture" }

func (l *Live) Close() error {
	l.closeOnce.Do(func() { l.handle.Close() })
	return nil
}
