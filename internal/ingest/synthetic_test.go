package ingest

import (
	"context"
	"math/rand"
	"testing"
)

func TestGenerateRecordDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// 1. Generate a large batch and count the labels.
	counts := make(map[string]int)
	const n = 10000
	for i := 0; i < n; i++ {
		rec := GenerateRecord(rng)
		counts[rec.Label]++
	}

	// 2. Attacks should sit near the configured 15% ratio.
	attacks := n - counts["normal"]
	ratio := float64(attacks) / float64(n)
	if ratio < 0.12 || ratio > 0.18 {
		t.Errorf("Expected attack ratio near 0.15, got %.3f", ratio)
	}

	// 3. All four attack families should show up.
	for _, label := range []string{"dos", "probe", "r2l", "u2r"} {
		if counts[label] == 0 {
			t.Errorf("Expected some %s records, got none", label)
		}
	}
	if counts["normal"] < attacks {
		t.Errorf("Expected normal traffic to dominate, got %d normal vs %d attacks", counts["normal"], attacks)
	}
}

func TestSyntheticDeterminism(t *testing.T) {
	a := NewSynthetic(42)
	b := NewSynthetic(42)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		ra, err := a.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to generate record: %v", err)
		}
		rb, err := b.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to generate record: %v", err)
		}
		if ra.Label != rb.Label || ra.SrcIP != rb.SrcIP || ra.SrcBytes != rb.SrcBytes || ra.Duration != rb.Duration {
			t.Fatalf("Expected identical records from equal seeds at step %d, got %+v vs %+v", i, ra, rb)
		}
	}
}

func TestDosRecordRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		rec := dosRecord(rng)
		if rec.Label != "dos" || rec.Flag != "S0" {
			t.Fatalf("Expected dos/S0 record, got %s/%s", rec.Label, rec.Flag)
		}
		if rec.Protocol != "tcp" && rec.Protocol != "udp" {
			t.Errorf("Expected tcp or udp, got %s", rec.Protocol)
		}
		if rec.Service != "http" && rec.Service != "echo" {
			t.Errorf("Expected http or echo service, got %s", rec.Service)
		}
		if rec.Duration < 0 || rec.Duration > 0.1 {
			t.Errorf("Expected duration in [0, 0.1], got %f", rec.Duration)
		}
		if rec.SrcBytes < 1000 || rec.SrcBytes > 10000 {
			t.Errorf("Expected src_bytes in [1000, 10000], got %d", rec.SrcBytes)
		}
		if rec.Count < 100 || rec.Count > 500 {
			t.Errorf("Expected count in [100, 500], got %d", rec.Count)
		}
		if rec.SerrorRate < 0.5 || rec.SerrorRate > 1 {
			t.Errorf("Expected serror_rate in [0.5, 1], got %f", rec.SerrorRate)
		}
	}
}

func TestAttackFamilyShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	// 1. Probes carry the reject flag and elevated rerror rates.
	for i := 0; i < 100; i++ {
		rec := probeRecord(rng)
		if rec.Flag != "REJ" {
			t.Fatalf("Expected REJ flag on probe, got %s", rec.Flag)
		}
		if rec.RerrorRate < 0.3 || rec.RerrorRate > 0.8 {
			t.Errorf("Expected rerror_rate in [0.3, 0.8], got %f", rec.RerrorRate)
		}
	}

	// 2. R2L sticks to TCP login services.
	loginServices := map[string]bool{"ftp": true, "telnet": true, "ssh": true, "imap": true}
	for i := 0; i < 100; i++ {
		rec := r2lRecord(rng)
		if rec.Protocol != "tcp" {
			t.Errorf("Expected tcp for r2l, got %s", rec.Protocol)
		}
		if !loginServices[rec.Service] {
			t.Errorf("Expected a login service for r2l, got %s", rec.Service)
		}
	}

	// 3. U2R is a long low-volume session.
	for i := 0; i < 100; i++ {
		rec := u2rRecord(rng)
		if rec.Duration < 1 || rec.Duration > 30 {
			t.Errorf("Expected duration in [1, 30], got %f", rec.Duration)
		}
		if rec.Count > 5 {
			t.Errorf("Expected count at most 5, got %d", rec.Count)
		}
	}
}

func TestBaseRecordEnvelope(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	rec := baseRecord(rng, "tcp", "http")
	if rec.DstPort != 80 {
		t.Errorf("Expected http to map to port 80, got %d", rec.DstPort)
	}
	if rec.SrcPort < 32768 || rec.SrcPort > 61000 {
		t.Errorf("Expected ephemeral source port, got %d", rec.SrcPort)
	}
	if rec.SrcIP == "" || rec.DstIP == "" {
		t.Error("Expected both endpoints to be set")
	}

	// Unknown services fall back to a high random port.
	rec = baseRecord(rng, "tcp", "nosuch")
	if rec.DstPort < 1024 {
		t.Errorf("Expected a high port for an unknown service, got %d", rec.DstPort)
	}
}

func TestSyntheticSourceContract(t *testing.T) {
	src := NewSynthetic(1)
	if src.Name() != "synthetic" {
		t.Errorf("Expected name synthetic, got %s", src.Name())
	}

	// 1. A live context yields records forever.
	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("Failed to generate record: %v", err)
	}

	// 2. A canceled context stops it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); err == nil {
		t.Error("Expected an error from a canceled context")
	}

	if err := src.Close(); err != nil {
		t.Errorf("Failed to close source: %v", err)
	}
}

func BenchmarkGenerateRecord(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < b.N; i++ {
		GenerateRecord(rng)
	}
}
