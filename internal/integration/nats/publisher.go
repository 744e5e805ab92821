package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/fanloremedia/fanlore/pkg/interfaces"
)

// EventEnvelope wraps an event with metadata for transport
type EventEnvelope struct {
	ID          string           `json:"id"`
	AggregateID string           `json:"aggregate_id"`
	EventType   string           `json:"event_type"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Data        interfaces.Event `json:"data"`
}

// Publisher forwards domain events to NATS JetStream
type Publisher struct {
	client *Client
	logger *zap.Logger
}

// NewPublisher creates a new NATS event publisher
func NewPublisher(client *Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.Named("publisher"),
	}
}

// PublishEvent publishes a domain event to NATS
func (p *Publisher) PublishEvent(ctx context.Context, event interfaces.Event) error {
	subject := fmt.Sprintf("catalog.%s", event.EventType())

	envelope := EventEnvelope{
		ID:          uuid.New().String(),
		AggregateID: event.AggregateID(),
		EventType:   event.EventType(),
		OccurredAt:  time.Unix(event.Timestamp(), 0),
		Data:        event,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Deduplicate on aggregate + type + timestamp so local bus retries
	// never double-publish.
	msgID := fmt.Sprintf("%s-%s-%d", event.AggregateID(), event.EventType(), event.Timestamp())

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ack, err := p.client.JetStream().Publish(pubCtx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("event_type", event.EventType()),
			zap.String("subject", subject),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published",
		zap.String("event_type", event.EventType()),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
	)

	return nil
}

// Relay bridges one local event type onto NATS. Register one per event
// type on the in-memory bus.
type Relay struct {
	publisher *Publisher
	eventType string
}

// NewRelay creates a bus handler that forwards events to NATS.
func NewRelay(publisher *Publisher, eventType string) *Relay {
	return &Relay{publisher: publisher, eventType: eventType}
}

// Handle forwards the event.
func (r *Relay) Handle(ctx context.Context, event interfaces.Event) error {
	return r.publisher.PublishEvent(ctx, event)
}

// EventType returns the local event type this relay forwards.
func (r *Relay) EventType() string {
	return r.eventType
}
