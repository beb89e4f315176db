package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"netsentry/internal/model"
	"netsentry/internal/protocol"
)

// attackRatio is the fraction of synthetic records carrying an attack
// pattern.
const attackRatio = 0.15

// Synthetic generates labeled NSL-KDD style traffic records on demand. It
// never drains.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic builds a generator. A zero seed picks one from the clock.
func NewSynthetic(seed int64) *Synthetic {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthetic{rng: rand.New(rand.NewSource(seed))}
}

func (s *Synthetic) Next(ctx context.Context) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return GenerateRecord(s.rng), nil
}

func (s *Synthetic) Name() string { return "synthetic" }
func (s *Synthetic) Close() error { return nil }

// GenerateRecord produces one synthetic record: 15% attacks spread evenly
// across the four attack families, the rest normal traffic.
func GenerateRecord(rng *rand.Rand) model.Record {
	if rng.Float64() < attackRatio {
		switch rng.Intn(4) {
		case 0:
			return dosRecord(rng)
		case 1:
			return probeRecord(rng)
		case 2:
			return r2lRecord(rng)
		default:
			return u2rRecord(rng)
		}
	}
	return normalRecord(rng)
}

func normalRecord(rng *rand.Rand) model.Record {
	rec := baseRecord(rng, pick(rng, "tcp", "udp", "icmp"),
		pick(rng, "http", "ftp", "ssh", "smtp", "dns", "telnet"))
	rec.Label = "normal"
	rec.Flag = "SF"
	rec.Size = between(rng, 40, 1500)
	rec.Duration = uniform(rng, 0.1, 10)
	rec.SrcBytes = between(rng, 100, 5000)
	rec.DstBytes = between(rng, 50, 3000)
	rec.Count = between(rng, 1, 20)
	rec.SrvCount = between(rng, 1, 10)
	rec.SerrorRate = uniform(rng, 0, 0.1)
	rec.SrvSerrorRate = uniform(rng, 0, 0.1)
	rec.RerrorRate = uniform(rng, 0, 0.1)
	rec.SrvRerrorRate = uniform(rng, 0, 0.1)
	rec.SameSrvRate = uniform(rng, 0.5, 1)
	rec.DiffSrvRate = uniform(rng, 0, 0.5)
	rec.DstHostCount = between(rng, 1, 50)
	rec.DstHostSrvCount = between(rng, 1, 25)
	rec.DstHostSameSrvRate = uniform(rng, 0.5, 1)
	rec.DstHostDiffSrvRate = uniform(rng, 0, 0.5)
	rec.DstHostSerrorRate = uniform(rng, 0, 0.1)
	rec.DstHostSrvSerrorRate = uniform(rng, 0, 0.1)
	return rec
}

// dosRecord models a flood: short connections, heavy one-way payloads, and
// saturated SYN-error rates.
func dosRecord(rng *rand.Rand) model.Record {
	rec := baseRecord(rng, pick(rng, "tcp", "udp"), pick(rng, "http", "echo"))
	rec.Label = "dos"
	rec.Flag = "S0"
	rec.Size = between(rng, 1000, 8000)
	rec.Duration = uniform(rng, 0, 0.1)
	rec.SrcBytes = between(rng, 1000, 10000)
	rec.DstBytes = between(rng, 0, 100)
	rec.Count = between(rng, 100, 500)
	rec.SrvCount = between(rng, 50, 200)
	rec.SerrorRate = uniform(rng, 0.5, 1)
	rec.SrvSerrorRate = uniform(rng, 0.5, 1)
	rec.RerrorRate = uniform(rng, 0, 0.3)
	rec.SrvRerrorRate = uniform(rng, 0, 0.3)
	rec.SameSrvRate = uniform(rng, 0.8, 1)
	rec.DiffSrvRate = uniform(rng, 0, 0.2)
	rec.DstHostCount = between(rng, 200, 500)
	rec.DstHostSrvCount = between(rng, 100, 300)
	rec.DstHostSameSrvRate = uniform(rng, 0.7, 1)
	rec.DstHostDiffSrvRate = uniform(rng, 0, 0.3)
	rec.DstHostSerrorRate = uniform(rng, 0.6, 1)
	rec.DstHostSrvSerrorRate = uniform(rng, 0.6, 1)
	return rec
}

// probeRecord models a scan: many services touched, high reject rates.
func probeRecord(rng *rand.Rand) model.Record {
	rec := baseRecord(rng, pick(rng, "tcp", "udp", "icmp"),
		pick(rng, "http", "ftp", "ssh", "smtp", "dns", "telnet"))
	rec.Label = "probe"
	rec.Flag = "REJ"
	rec.Size = between(rng, 40, 200)
	rec.Duration = uniform(rng, 0, 5)
	rec.SrcBytes = between(rng, 0, 1000)
	rec.DstBytes = between(rng, 0, 500)
	rec.Count = between(rng, 10, 100)
	rec.SrvCount = between(rng, 5, 50)
	rec.SerrorRate = uniform(rng, 0, 0.5)
	rec.SrvSerrorRate = uniform(rng, 0, 0.5)
	rec.RerrorRate = uniform(rng, 0.3, 0.8)
	rec.SrvRerrorRate = uniform(rng, 0.3, 0.8)
	rec.SameSrvRate = uniform(rng, 0.1, 0.5)
	rec.DiffSrvRate = uniform(rng, 0.5, 0.9)
	rec.DstHostCount = between(rng, 50, 200)
	rec.DstHostSrvCount = between(rng, 20, 100)
	rec.DstHostSameSrvRate = uniform(rng, 0.1, 0.4)
	rec.DstHostDiffSrvRate = uniform(rng, 0.6, 0.9)
	rec.DstHostSerrorRate = uniform(rng, 0.2, 0.6)
	rec.DstHostSrvSerrorRate = uniform(rng, 0.2, 0.6)
	return rec
}

// r2lRecord models remote-to-local credential attacks: interactive login
// services, few connections, elevated reject rates from failed attempts.
func r2lRecord(rng *rand.Rand) model.Record {
	rec := baseRecord(rng, "tcp", pick(rng, "ftp", "telnet", "ssh", "imap"))
	rec.Label = "r2l"
	rec.Flag = "SF"
	rec.Size = between(rng, 60, 600)
	rec.Duration = uniform(rng, 0.5, 5)
	rec.SrcBytes = between(rng, 100, 2000)
	rec.DstBytes = between(rng, 100, 2000)
	rec.Count = between(rng, 1, 10)
	rec.SrvCount = between(rng, 1, 5)
	rec.SerrorRate = uniform(rng, 0, 0.2)
	rec.SrvSerrorRate = uniform(rng, 0, 0.2)
	rec.RerrorRate = uniform(rng, 0.2, 0.6)
	rec.SrvRerrorRate = uniform(rng, 0.2, 0.6)
	rec.SameSrvRate = uniform(rng, 0.7, 1)
	rec.DiffSrvRate = uniform(rng, 0, 0.2)
	rec.DstHostCount = between(rng, 1, 50)
	rec.DstHostSrvCount = between(rng, 1, 25)
	rec.DstHostSameSrvRate = uniform(rng, 0.5, 1)
	rec.DstHostDiffSrvRate = uniform(rng, 0, 0.3)
	rec.DstHostSerrorRate = uniform(rng, 0, 0.2)
	rec.DstHostSrvSerrorRate = uniform(rng, 0.2, 0.6)
	return rec
}

// u2rRecord models privilege escalation: a long interactive shell session
// with small commands in and larger responses out.
func u2rRecord(rng *rand.Rand) model.Record {
	rec := baseRecord(rng, "tcp", pick(rng, "shell", "telnet"))
	rec.Label = "u2r"
	rec.Flag = "SF"
	rec.Size = between(rng, 40, 400)
	rec.Duration = uniform(rng, 1, 30)
	rec.SrcBytes = between(rng, 50, 500)
	rec.DstBytes = between(rng, 500, 5000)
	rec.Count = between(rng, 1, 5)
	rec.SrvCount = between(rng, 1, 3)
	rec.SerrorRate = uniform(rng, 0, 0.1)
	rec.SrvSerrorRate = uniform(rng, 0, 0.1)
	rec.RerrorRate = uniform(rng, 0, 0.1)
	rec.SrvRerrorRate = uniform(rng, 0, 0.1)
	rec.SameSrvRate = uniform(rng, 0.8, 1)
	rec.DiffSrvRate = uniform(rng, 0, 0.1)
	rec.DstHostCount = between(rng, 1, 10)
	rec.DstHostSrvCount = between(rng, 1, 5)
	rec.DstHostSameSrvRate = uniform(rng, 0.8, 1)
	rec.DstHostDiffSrvRate = uniform(rng, 0, 0.1)
	rec.DstHostSerrorRate = uniform(rng, 0, 0.1)
	rec.DstHostSrvSerrorRate = uniform(rng, 0, 0.1)
	return rec
}

// baseRecord fills the envelope fields every synthetic record shares:
// private source and destination hosts, an ephemeral source port, and the
// destination port implied by the service.
func baseRecord(rng *rand.Rand, proto, service string) model.Record {
	dstPort := protocol.PortForService(service)
	if dstPort == 0 {
		dstPort = between(rng, 1024, 65535)
	}
	return model.Record{
		Timestamp: time.Now(),
		SrcIP:     fmt.Sprintf("192.168.1.%d", between(rng, 1, 254)),
		DstIP:     fmt.Sprintf("10.0.0.%d", between(rng, 1, 254)),
		SrcPort:   between(rng, 32768, 61000),
		DstPort:   dstPort,
		Protocol:  proto,
		Service:   service,
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// between returns an integer in [lo, hi], both ends included.
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}
