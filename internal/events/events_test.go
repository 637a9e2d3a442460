package events

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventPoolBatchImported, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventPoolBatchImported, PoolBatchPayload{Date: "2025-06-01", Count: 12})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventPoolBatchImported {
		t.Errorf("expected type %s, got %s", EventPoolBatchImported, received.Type)
	}

	var decoded PoolBatchPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.Count != 12 {
		t.Errorf("expected count 12, got %d", decoded.Count)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2, countAll int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })
	bus.SubscribeAll(func(_ *Event) error { countAll++; return nil })

	bus.Publish(&Event{Type: "event"})
	bus.Publish(&Event{Type: "other"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
	if countAll != 2 {
		t.Errorf("expected catch-all handler to see 2 events, got %d", countAll)
	}
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var failures int
	bus.OnError = func(_ *Event, _ error) { failures++ }

	var secondCalled bool
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	bus.Publish(&Event{Type: "event"})

	if failures != 1 {
		t.Errorf("expected 1 reported failure, got %d", failures)
	}
	if !secondCalled {
		t.Error("a failing handler must not stop the others")
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus should ignore events: %v", err)
	}
}

func TestDateOf(t *testing.T) {
	event, err := NewJSONEvent(EventManualCreated, ReservationPayload{ReservationID: 5, Date: "2025-06-02"})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	date, ok := DateOf(&event)
	if !ok || date != "2025-06-02" {
		t.Errorf("expected 2025-06-02, got %q (%v)", date, ok)
	}

	if _, ok := DateOf(&Event{Payload: json.RawMessage(`{}`)}); ok {
		t.Error("expected no date in empty payload")
	}
}
