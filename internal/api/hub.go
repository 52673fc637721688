package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/orcakit/core/internal/delivery"
)

// WebSocketBufferSize is the buffer size for per-client send/broadcast
// channels, large enough to absorb a burst of delivery substrate events
// before a client whose buffer is full is disconnected from the hub.
const WebSocketBufferSize = 256

// wsMessage envelopes a single delivery substrate event for the wire.
type wsMessage struct {
	Type    delivery.EventType `json:"type"`
	Payload *delivery.Event    `json:"payload"`
}

// Client is a single connected WebSocket observer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans delivery substrate events out to every connected WebSocket
// client.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates an empty hub; call Run in its own goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, WebSocketBufferSize),
	}
}

// Run processes register/unregister/broadcast until ctx-independent
// shutdown; it is intended to run for the lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// BroadcastEvent wraps a delivery substrate event and sends it to every
// connected client.
func (h *Hub) BroadcastEvent(event delivery.Event) {
	data, err := json.Marshal(wsMessage{Type: event.Type, Payload: &event})
	if err != nil {
		return
	}
	h.broadcast <- data
}

// ClientCount reports how many observers are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// FeedFrom subscribes the hub to bus as target "all" and republishes
// every event it receives to connected clients until stop is closed.
func (h *Hub) FeedFrom(bus *delivery.Bus, stop <-chan struct{}) {
	events := bus.Subscribe("all", nil)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			h.BroadcastEvent(event)
		case <-stop:
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// checkWebSocketOrigin allows same-origin and localhost requests; no
// Origin header means a same-origin or non-browser client.
func checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := originURL.Hostname()
	return host == "localhost" || host == "127.0.0.1" || strings.HasSuffix(host, ".localhost")
}

var upgrader = websocket.Upgrader{
	CheckOrigin: checkWebSocketOrigin,
}

// HandleWebSocket upgrades the connection and registers it with the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, WebSocketBufferSize)}
	h.Register(client)

	go client.writePump()
	go client.readPump()
}
