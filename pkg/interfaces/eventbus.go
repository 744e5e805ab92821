package interfaces

import "context"

// Event represents a domain event.
type Event interface {
	// EventType returns the type of the event
	EventType() string

	// Timestamp returns when the event occurred
	Timestamp() int64

	// AggregateID returns the ID of the aggregate that produced the event
	AggregateID() string
}

// EventHandler handles events of one type.
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event Event) error

	// EventType returns the type of events this handler processes
	EventType() string
}

// EventBus provides pub/sub for domain events.
type EventBus interface {
	// Publish delivers an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishAsync delivers an event without blocking the caller
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Start readies the bus for publishes
	Start(ctx context.Context) error

	// Stop drains in-flight publishes
	Stop() error
}
