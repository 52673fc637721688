package registry

import "time"

// EventKind enumerates the agent lifecycle events the registry publishes.
type EventKind string

const (
	EventSpawn        EventKind = "spawn"
	EventCrash        EventKind = "crash"
	EventRestart      EventKind = "restart"
	EventTaskStart    EventKind = "task_start"
	EventTaskComplete EventKind = "task_complete"
	EventTaskFail     EventKind = "task_fail"
	EventHealth       EventKind = "health"
	EventIdle         EventKind = "idle"
	EventBusy         EventKind = "busy"
	EventHeartbeat    EventKind = "heartbeat"
)

// Event is a single agent lifecycle occurrence.
type Event struct {
	Kind      EventKind
	AgentID   int
	MissionID string
	Occurred  time.Time
	Detail    string
}

// EventPublisher is the narrow capability the registry needs to announce
// lifecycle events; satisfied by internal/delivery's Bus without the
// registry importing it directly.
type EventPublisher interface {
	Publish(event Event)
}

// noopPublisher discards events; used when the registry is constructed
// without a delivery substrate (e.g. in tests).
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
