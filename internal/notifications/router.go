package notifications

import (
	"log"
	"sync"
)

// Router dispatches alerts to every registered channel willing to
// handle them.
type Router struct {
	channels []Channel
	mu       sync.RWMutex
}

// NewRouter builds a router over an initial channel set.
func NewRouter(channels []Channel) *Router {
	if channels == nil {
		channels = []Channel{}
	}
	return &Router{channels: channels}
}

// AddChannel registers an additional channel.
func (r *Router) AddChannel(channel Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
}

// RemoveChannel drops a channel by name.
func (r *Router) RemoveChannel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		if ch.Name() != name {
			filtered = append(filtered, ch)
		}
	}
	r.channels = filtered
}

// Route fans the alert out to every matching channel without waiting
// for delivery, logging per-channel failures.
func (r *Router) Route(alert Alert) {
	for _, ch := range r.snapshot() {
		go func(channel Channel) {
			if !channel.ShouldNotify(alert) {
				return
			}
			if err := channel.Send(alert); err != nil {
				log.Printf("[NOTIFY-ROUTER] channel %s failed to send alert %s: %v", channel.Name(), alert.ID, err)
			}
		}(ch)
	}
}

// RouteWithWait routes the alert and blocks until every channel finishes.
func (r *Router) RouteWithWait(alert Alert) {
	channels := r.snapshot()
	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(channel Channel) {
			defer wg.Done()
			if !channel.ShouldNotify(alert) {
				return
			}
			if err := channel.Send(alert); err != nil {
				log.Printf("[NOTIFY-ROUTER] channel %s failed to send alert %s: %v", channel.Name(), alert.ID, err)
			}
		}(ch)
	}
	wg.Wait()
}

// Channels lists the names of every registered channel.
func (r *Router) Channels() []string {
	channels := r.snapshot()
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name()
	}
	return names
}

func (r *Router) snapshot() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, len(r.channels))
	copy(out, r.channels)
	return out
}
