package delivery

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Backpressure configuration: a slow consumer gets a few brief retries
// before its event is dropped and counted, rather than blocking Publish.
const (
	MaxBackpressureRetries = 3
	BackpressureRetryDelay = 10 * time.Millisecond
)

// Subscription is a single subscriber's buffered channel plus its type
// filter.
type Subscription struct {
	Ch     chan Event
	Types  []EventType
	Target string
}

// Bus fans events out to subscribers and optionally persists them to an
// EventStore so a disconnected target can catch up later. This is the
// in-process half of the delivery substrate; when NATS is configured,
// Client/StreamManager carry events across process boundaries instead.
type Bus struct {
	mu            sync.RWMutex
	subscribers   map[string][]*Subscription
	store         EventStore
	droppedEvents uint64
}

// NewBus creates a bus, optionally backed by a persistent store for
// redelivery. A nil store disables GetPendingEvents/MarkDelivered.
func NewBus(store EventStore) *Bus {
	return &Bus{
		subscribers: make(map[string][]*Subscription),
		store:       store,
	}
}

// Subscribe registers interest in events for target, filtered to types
// (nil/empty means all types), and returns the channel to read from.
func (b *Bus) Subscribe(target string, types []EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		Ch:     make(chan Event, 100),
		Types:  types,
		Target: target,
	}
	b.subscribers[target] = append(b.subscribers[target], sub)
	return sub.Ch
}

// Unsubscribe removes and closes the subscription backing ch.
func (b *Bus) Unsubscribe(target string, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, exists := b.subscribers[target]
	if !exists {
		return
	}
	for i, sub := range subs {
		if sub.Ch == ch {
			close(sub.Ch)
			b.subscribers[target] = append(subs[:i], subs[i+1:]...)
			if len(b.subscribers[target]) == 0 {
				delete(b.subscribers, target)
			}
			return
		}
	}
}

// Publish persists event (if a store is configured) and delivers it to
// every subscriber of its target, plus every "all" subscriber; a target
// of "all" broadcasts to every live subscription.
func (b *Bus) Publish(event *Event) {
	if b.store != nil {
		if err := b.store.Save(event); err != nil {
			log.Printf("[DELIVERY] ERROR: failed to persist event: type=%s target=%s id=%s error=%v",
				event.Type, event.Target, event.ID, err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var targetSubs []*Subscription
	if event.Target == "all" {
		for _, subs := range b.subscribers {
			targetSubs = append(targetSubs, subs...)
		}
	} else {
		if subs, exists := b.subscribers[event.Target]; exists {
			targetSubs = append(targetSubs, subs...)
		}
		if subs, exists := b.subscribers["all"]; exists {
			targetSubs = append(targetSubs, subs...)
		}
	}

	for _, sub := range targetSubs {
		if b.matchesTypes(event.Type, sub.Types) {
			b.sendWithBackpressure(sub, event)
		}
	}
}

// sendWithBackpressure makes a non-blocking attempt, then retries briefly
// before dropping the event and incrementing the dropped counter. The
// event survives in the store (if any) for later GetPendingEvents.
func (b *Bus) sendWithBackpressure(sub *Subscription, event *Event) {
	select {
	case sub.Ch <- *event:
		return
	default:
	}

	for retry := 1; retry <= MaxBackpressureRetries; retry++ {
		time.Sleep(BackpressureRetryDelay)
		select {
		case sub.Ch <- *event:
			return
		default:
		}
	}

	dropped := atomic.AddUint64(&b.droppedEvents, 1)
	log.Printf("[DELIVERY] WARNING: dropped event after %d retries: type=%s target=%s source=%s id=%s (total dropped: %d)",
		MaxBackpressureRetries, event.Type, event.Target, event.Source, event.ID, dropped)
}

// GetPendingEvents returns undelivered events for target from the store.
func (b *Bus) GetPendingEvents(target string, types []EventType) ([]*Event, error) {
	if b.store == nil {
		return nil, nil
	}
	return b.store.GetPending(target, types)
}

// MarkDelivered records that eventID has been successfully redelivered.
func (b *Bus) MarkDelivered(eventID string) error {
	if b.store == nil {
		return nil
	}
	return b.store.MarkDelivered(eventID)
}

// DroppedEventCount returns the running total of events dropped for
// backpressure.
func (b *Bus) DroppedEventCount() uint64 {
	return atomic.LoadUint64(&b.droppedEvents)
}

func (b *Bus) matchesTypes(eventType EventType, types []EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}
