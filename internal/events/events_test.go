package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"netsentry/internal/model"
)

func TestBusFanout(t *testing.T) {
	a := NewMemory(10)
	b := NewMemory(10)
	bus := NewBus(a)
	bus.Attach(b)

	bus.Publish(model.Event{Type: model.EventNetworkData})
	bus.Publish(model.Event{Type: model.EventSecurityAlert})

	for name, sink := range map[string]*Memory{"first": a, "second": b} {
		evts := sink.Events()
		if len(evts) != 2 {
			t.Fatalf("Expected 2 events on the %s sink, got %d", name, len(evts))
		}
		if evts[0].Type != model.EventNetworkData || evts[1].Type != model.EventSecurityAlert {
			t.Errorf("Expected events in publish order on the %s sink, got %v then %v", name, evts[0].Type, evts[1].Type)
		}
	}
}

func TestMemoryEviction(t *testing.T) {
	m := NewMemory(3)
	for i := 0; i < 5; i++ {
		m.Publish(model.Event{Timestamp: time.Unix(int64(i), 0)})
	}
	evts := m.Events()
	if len(evts) != 3 {
		t.Fatalf("Expected 3 buffered events, got %d", len(evts))
	}
	for i, evt := range evts {
		if want := int64(i + 2); evt.Timestamp.Unix() != want {
			t.Errorf("Expected event %d at %d, got %d", i, want, evt.Timestamp.Unix())
		}
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	// 1. Connect a client through a real upgrade.
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the client to register")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// 2. A published event arrives as JSON.
	hub.Publish(model.Event{Type: model.EventSecurityAlert, Timestamp: time.Now()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("Failed to read broadcast event: %v", err)
	}
	if got.Type != model.EventSecurityAlert {
		t.Errorf("Expected a security_alert event, got %s", got.Type)
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the client to register")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A closed peer should be unregistered once the read loop notices.
	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the client to be dropped after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Publishing with nobody listening is a no-op.
	hub.Publish(model.Event{Type: model.EventNetworkData})
}
