package delivery

import (
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// StreamManager configures the JetStream streams that back durable
// mission delivery and agent presence tracking.
type StreamManager struct {
	js nats.JetStreamContext
}

// NewStreamManager opens a JetStream context on an established connection.
func NewStreamManager(conn *nats.Conn) (*StreamManager, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, err
	}
	return &StreamManager{js: js}, nil
}

// SetupStreams creates or updates every stream the delivery substrate
// depends on: durable MISSIONS delivery, ephemeral PRESENCE heartbeats,
// and short-lived COMMANDS for control-plane messages (kill/restart).
func (sm *StreamManager) SetupStreams() error {
	streams := []nats.StreamConfig{
		{
			Name:        "MISSIONS",
			Description: "Mission dispatch and completion events",
			Subjects:    []string{"mission.>"},
			Storage:     nats.FileStorage,
			MaxAge:      24 * time.Hour,
			Retention:   nats.LimitsPolicy,
		},
		{
			Name:        "PRESENCE",
			Description: "Agent heartbeat and health messages",
			Subjects:    []string{"presence.>"},
			Storage:     nats.MemoryStorage,
			MaxAge:      5 * time.Minute,
			Retention:   nats.LimitsPolicy,
		},
		{
			Name:        "COMMANDS",
			Description: "Control-plane commands to agents (kill/restart)",
			Subjects:    []string{"cmd.>"},
			Storage:     nats.MemoryStorage,
			MaxAge:      1 * time.Hour,
			Retention:   nats.LimitsPolicy,
		},
	}

	for _, cfg := range streams {
		if err := sm.createOrUpdateStream(cfg); err != nil {
			return err
		}
	}
	log.Println("[DELIVERY-STREAMS] all streams configured")
	return nil
}

func (sm *StreamManager) createOrUpdateStream(cfg nats.StreamConfig) error {
	info, err := sm.js.StreamInfo(cfg.Name)
	if err != nil {
		if err == nats.ErrStreamNotFound {
			log.Printf("[DELIVERY-STREAMS] creating stream %s (%v)", cfg.Name, cfg.Subjects)
			if _, err := sm.js.AddStream(&cfg); err != nil {
				return err
			}
			return nil
		}
		return err
	}

	log.Printf("[DELIVERY-STREAMS] updating stream %s (messages: %d)", cfg.Name, info.State.Msgs)
	_, err = sm.js.UpdateStream(&cfg)
	return err
}

// DeleteStream removes a stream, useful in test teardown.
func (sm *StreamManager) DeleteStream(name string) error {
	return sm.js.DeleteStream(name)
}

// GetStreamInfo returns the current state of a named stream.
func (sm *StreamManager) GetStreamInfo(name string) (*nats.StreamInfo, error) {
	return sm.js.StreamInfo(name)
}
