package events

import (
	"sync"

	"netsentry/internal/model"
)

// Memory keeps the most recent events in a bounded in-process buffer.
type Memory struct {
	mu    sync.Mutex
	buf   []model.Event
	head  int
	count int
}

// NewMemory builds a sink remembering up to capacity events.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{buf: make([]model.Event, capacity)}
}

func (m *Memory) Publish(evt model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[m.head] = evt
	m.head = (m.head + 1) % len(m.buf)
	if m.count < len(m.buf) {
		m.count++
	}
}

// Events returns the buffered events, oldest first.
func (m *Memory) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, m.count)
	start := m.head - m.count + len(m.buf)
	for i := 0; i < m.count; i++ {
		out = append(out, m.buf[(start+i)%len(m.buf)])
	}
	return out
}
