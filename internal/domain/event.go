package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventTaskRouted      EventType = "task.routed"
	EventTaskStarted     EventType = "task.started"
	EventTaskRejected    EventType = "task.rejected"
	EventTaskFailed      EventType = "task.failed"
	EventTaskCompleted   EventType = "task.completed"
	EventToolCallStarted EventType = "tool.call.started"
	EventToolCallDone    EventType = "tool.call.completed"
	EventToolDenied      EventType = "tool.denied"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event stamped with the thread from ctx. A payload that
// fails to marshal is dropped rather than failing the publisher.
func NewEvent(ctx context.Context, eventType EventType, payload any) Event {
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		ThreadID:  ThreadIDFromContext(ctx),
		Payload:   raw,
	}
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for lifecycle events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// PublishEvent publishes on bus if it is non-nil.
func PublishEvent(ctx context.Context, bus EventBus, eventType EventType, payload any) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, NewEvent(ctx, eventType, payload))
}
