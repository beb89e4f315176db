package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"netsentry/internal/model"
	"netsentry/internal/protocol"
)

// LogReplay replays a connection log, one record per line. Lines that do
// not parse are skipped. When loop is set the file is rewound at EOF, but
// only if the pass just finished yielded at least one record; a file with
// nothing parseable drains instead of spinning.
type LogReplay struct {
	path string
	loop bool

	mu      sync.Mutex
	f       *os.File
	sc      *bufio.Scanner
	yielded bool
	closed  bool
}

// NewLogReplay opens path for replay.
func NewLogReplay(path string, loop bool) (*LogReplay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &LogReplay{path: path, loop: loop, f: f, sc: bufio.NewScanner(f)}, nil
}

func (l *LogReplay) Next(ctx context.Context) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return model.Record{}, io.EOF
	}
	for {
		if l.sc.Scan() {
			rec, err := ParseLogLine(l.sc.Text())
			if err != nil {
				continue
			}
			l.yielded = true
			return rec, nil
		}
		if err := l.sc.Err(); err != nil {
			return model.Record{}, fmt.Errorf("failed to read log file: %w", err)
		}
		if !l.loop || !l.yielded {
			return model.Record{}, io.EOF
		}
		if err := l.rewind(); err != nil {
			return model.Record{}, err
		}
	}
}

// rewind reopens the file for another pass and arms the empty-pass guard.
func (l *LogReplay) rewind() error {
	l.f.Close()
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to reopen log file: %w", err)
	}
	l.f = f
	l.sc = bufio.NewScanner(f)
	l.yielded = false
	return nil
}

func (l *LogReplay) Name() string { return "logs" }

func (l *LogReplay) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

// ParseLogLine decodes one whitespace-separated log entry:
//
//	srcIP dstIP protocol srcPort dstPort size
//
// The record gets single-observation defaults for the statistical fields.
func ParseLogLine(line string) (model.Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return model.Record{}, fmt.Errorf("log line has %d fields, expected 6", len(fields))
	}
	srcPort, err := strconv.Atoi(fields[3])
	if err != nil {
		return model.Record{}, fmt.Errorf("bad source port %q: %w", fields[3], err)
	}
	dstPort, err := strconv.Atoi(fields[4])
	if err != nil {
		return model.Record{}, fmt.Errorf("bad destination port %q: %w", fields[4], err)
	}
	size, err := strconv.Atoi(fields[5])
	if err != nil {
		return model.Record{}, fmt.Errorf("bad size %q: %w", fields[5], err)
	}
	proto := strings.ToLower(fields[2])
	return protocol.SinglePacketRecord(time.Now(), fields[0], fields[1], proto, srcPort, dstPort, size), nil
}
