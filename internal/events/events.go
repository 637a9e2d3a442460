package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventPoolBatchImported    = "pool_batch_imported"
	EventManualCreated        = "manual_reservation_created"
	EventManualUpdated        = "manual_reservation_updated"
	EventManualDeleted        = "manual_reservation_deleted"
	EventRestaurantChanged    = "restaurant_reservation_changed"
	EventOccupancyPublished   = "occupancy_published"
	EventOccupancyPublishFail = "occupancy_publish_failed"
)

// PoolBatchPayload describes one date replaced by an import.
type PoolBatchPayload struct {
	Date    string `json:"date"`
	BatchID string `json:"batch_id"`
	Count   int    `json:"count"`
	People  int    `json:"people"`
	Actor   string `json:"actor"`
	Source  string `json:"source"`
}

// ReservationPayload is a snapshot of a changed manual or restaurant reservation.
type ReservationPayload struct {
	ReservationID int64  `json:"reservation_id"`
	Date          string `json:"date"`
	PreviousDate  string `json:"previous_date,omitempty"`
	Time          string `json:"time,omitempty"`
	ClientName    string `json:"client_name"`
	Headcount     int    `json:"headcount"`
	Action        string `json:"action"`
	Actor         string `json:"actor"`
}

// DayPayload names the date an occupancy event refers to.
type DayPayload struct {
	Date  string `json:"date"`
	Error string `json:"error,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	all         []EventHandler
	mu          sync.RWMutex

	// OnError, when set, receives handler failures.
	OnError func(event *Event, err error)
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Publish notifies subscribers of the event type, then catch-all subscribers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.all...)
	onError := b.OnError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// DateOf extracts the "date" field shared by every payload of this package.
func DateOf(event *Event) (string, bool) {
	var p struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.Date == "" {
		return "", false
	}
	return p.Date, true
}
