// Package delivery implements the at-most-once delivery substrate:
// an in-process event bus for local fan-out, an optional NATS/JetStream
// streaming channel for cross-process delivery, and a durable inbox
// fallback keyed by mission id for reconnect recovery.
package delivery

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the kinds of events the substrate carries.
type EventType string

const (
	EventMissionDispatched EventType = "mission_dispatched"
	EventMissionAcked      EventType = "mission_acked"
	EventMissionCompleted  EventType = "mission_completed"
	EventMissionFailed     EventType = "mission_failed"
	EventAgentHeartbeat    EventType = "agent_heartbeat"
	EventAgentLifecycle    EventType = "agent_lifecycle"
	EventOracleAlert       EventType = "oracle_alert"
)

// Priority mirrors a mission's priority for event ordering purposes.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityNormal   = 3
	PriorityLow      = 4
)

// Event is a single occurrence published on the bus and, optionally,
// persisted for redelivery.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Target    string                 `json:"target"`
	Priority  int                    `json:"priority"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewEvent builds an Event with a fresh id and the current timestamp.
func NewEvent(eventType EventType, source, target string, priority int, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Target:    target,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// AllEventTypes lists every defined event type.
func AllEventTypes() []EventType {
	return []EventType{
		EventMissionDispatched,
		EventMissionAcked,
		EventMissionCompleted,
		EventMissionFailed,
		EventAgentHeartbeat,
		EventAgentLifecycle,
		EventOracleAlert,
	}
}

// EventStore persists events for redelivery to a target that was
// disconnected at publish time.
type EventStore interface {
	Save(event *Event) error
	GetPending(target string, types []EventType) ([]*Event, error)
	MarkDelivered(eventID string) error
}
