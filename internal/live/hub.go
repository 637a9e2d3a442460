// Package live pushes change events to connected dashboards over WebSocket.
package live

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"aforo/internal/events"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	clientBuffer     = 32
	defaultHeartbeat = 30 * time.Second
	writeTimeout     = 10 * time.Second
	maxIncomingFrame = 1024
)

const (
	messageConnected = "connected"
	messageEvent     = "event"
	messageHeartbeat = "heartbeat"
)

// Message is the envelope written to clients.
type Message struct {
	Type  string        `json:"type"`
	Date  string        `json:"date,omitempty"`
	Event *events.Event `json:"event,omitempty"`
}

type client struct {
	date string
	send chan *events.Event
}

// Hub fans bus events out to WebSocket clients. A client connected with
// ?date= only receives events for that date.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]struct{}
	upgrader  websocket.Upgrader
	heartbeat time.Duration
	logger    *zerolog.Logger
}

func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		heartbeat: defaultHeartbeat,
		logger:    logger,
	}
}

// Subscribe attaches the hub to every event of the bus.
func (h *Hub) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll(h.Broadcast)
}

// Broadcast queues event for every matching client. Slow clients drop events.
func (h *Hub) Broadcast(event *events.Event) error {
	date, _ := events.DateOf(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.date != "" && c.date != date {
			continue
		}
		select {
		case c.send <- event:
		default:
			h.logger.Warn().Str("event_type", event.Type).Msg("websocket client too slow, event dropped")
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(date string) *client {
	c := &client{date: date, send: make(chan *events.Event, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.serveWS(w, r); err != nil {
		h.logger.Debug().Err(err).Msg("websocket closed")
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	defer conn.Close()

	date := r.URL.Query().Get("date")
	c := h.register(date)
	defer h.unregister(c)

	if err := writeJSON(conn, Message{Type: messageConnected, Date: date}); err != nil {
		return fmt.Errorf("write websocket connected payload: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxIncomingFrame)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case event := <-c.send:
			if err := writeJSON(conn, Message{Type: messageEvent, Event: event}); err != nil {
				return fmt.Errorf("write websocket payload: %w", err)
			}
		case <-ticker.C:
			if err := writeJSON(conn, Message{Type: messageHeartbeat}); err != nil {
				return fmt.Errorf("write websocket heartbeat: %w", err)
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
