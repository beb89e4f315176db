package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conn.log")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("Failed to write log fixture: %v", err)
	}
	return path
}

func TestParseLogLine(t *testing.T) {
	rec, err := ParseLogLine("192.168.1.5 10.0.0.2 TCP 40000 80 1500")
	if err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if rec.SrcIP != "192.168.1.5" || rec.DstIP != "10.0.0.2" {
		t.Errorf("Expected endpoints 192.168.1.5/10.0.0.2, got %s/%s", rec.SrcIP, rec.DstIP)
	}
	if rec.Protocol != "tcp" {
		t.Errorf("Expected protocol lowercased to tcp, got %s", rec.Protocol)
	}
	if rec.SrcPort != 40000 || rec.DstPort != 80 {
		t.Errorf("Expected ports 40000/80, got %d/%d", rec.SrcPort, rec.DstPort)
	}
	if rec.Service != "http" {
		t.Errorf("Expected service http, got %s", rec.Service)
	}

	// Single-observation defaults.
	if rec.SrcBytes != 1500 {
		t.Errorf("Expected src_bytes 1500, got %d", rec.SrcBytes)
	}
	if rec.Duration != 0.001 {
		t.Errorf("Expected duration 0.001, got %f", rec.Duration)
	}
	if rec.Count != 1 || rec.SrvCount != 1 {
		t.Errorf("Expected count/srv_count 1/1, got %d/%d", rec.Count, rec.SrvCount)
	}
}

func TestParseLogLineMalformed(t *testing.T) {
	bad := []string{
		"",
		"192.168.1.5 10.0.0.2 tcp 40000 80",
		"192.168.1.5 10.0.0.2 tcp 40000 80 1500 extra",
		"192.168.1.5 10.0.0.2 tcp abc 80 1500",
		"192.168.1.5 10.0.0.2 tcp 40000 www 1500",
		"192.168.1.5 10.0.0.2 tcp 40000 80 big",
	}
	for _, line := range bad {
		if _, err := ParseLogLine(line); err == nil {
			t.Errorf("Expected an error for %q, got none", line)
		}
	}
}

func TestLogReplaySkipsAndWraps(t *testing.T) {
	path := writeLog(t, "10.0.0.1 10.0.0.2 tcp 40000 80 100\nnot a record\n10.0.0.3 10.0.0.4 udp 40001 53 200\n")
	src, err := NewLogReplay(path, true)
	if err != nil {
		t.Fatalf("Failed to open replay: %v", err)
	}
	defer src.Close()

	ctx := context.Background()

	// Two parseable lines replayed in order, then the file wraps.
	wantPorts := []int{80, 53, 80, 53, 80}
	for i, want := range wantPorts {
		rec, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to read record %d: %v", i, err)
		}
		if rec.DstPort != want {
			t.Errorf("Expected destination port %d at step %d, got %d", want, i, rec.DstPort)
		}
	}
}

func TestLogReplayNoLoopDrains(t *testing.T) {
	path := writeLog(t, "10.0.0.1 10.0.0.2 tcp 40000 80 100\n")
	src, err := NewLogReplay(path, false)
	if err != nil {
		t.Fatalf("Failed to open replay: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	if _, err := src.Next(ctx); err != nil {
		t.Fatalf("Failed to read record: %v", err)
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after the last line, got %v", err)
	}
}

func TestLogReplayGarbageOnlyDrains(t *testing.T) {
	// Looping must not spin on a file with nothing parseable in it.
	path := writeLog(t, "garbage\nmore garbage\n")
	src, err := NewLogReplay(path, true)
	if err != nil {
		t.Fatalf("Failed to open replay: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF from an unparseable file, got %v", err)
	}
}

func TestLogReplayClosed(t *testing.T) {
	path := writeLog(t, "10.0.0.1 10.0.0.2 tcp 40000 80 100\n")
	src, err := NewLogReplay(path, true)
	if err != nil {
		t.Fatalf("Failed to open replay: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Failed to close replay: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after close, got %v", err)
	}
}

func TestLogReplayMissingFile(t *testing.T) {
	if _, err := NewLogReplay(filepath.Join(t.TempDir(), "absent.log"), true); err == nil {
		t.Error("Expected an error for a missing file, got none")
	}
}
