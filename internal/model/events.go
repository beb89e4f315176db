package model

import "time"

// EventType names the observer-channel event kinds.
type EventType string

const (
	EventNetworkData   EventType = "network_data"
	EventSecurityAlert EventType = "security_alert"
)

// Event is one observer-channel message. Payload is a ScoringResult for
// network_data events and an Alert for security_alert events.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EventSink receives events from the core. Delivery is fire-and-forget:
// implementations must not block the caller, and the core neither retries
// nor acknowledges.
type EventSink interface {
	Publish(evt Event)
}
