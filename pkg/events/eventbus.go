package events

import (
	"context"
	"sync"

	"github.com/fanloremedia/fanlore/pkg/interfaces"
)

// InMemoryEventBus fans events out to subscribed handlers in-process.
// Async publishes are tracked so Stop can drain them before the process
// tears down the integrations they feed.
type InMemoryEventBus struct {
	handlers map[string][]interfaces.EventHandler
	mu       sync.RWMutex
	logger   interfaces.Logger
	wg       sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(logger interfaces.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Publish delivers an event to every subscriber of its type. A failing
// handler is logged and skipped; one bad relay never starves the rest.
func (eb *InMemoryEventBus) Publish(ctx context.Context, event interfaces.Event) error {
	eb.mu.RLock()
	handlers := eb.handlers[event.EventType()]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			eb.logger.Error("event handler failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.Error(err))
		}
	}
	return nil
}

// PublishAsync delivers an event on its own goroutine.
func (eb *InMemoryEventBus) PublishAsync(ctx context.Context, event interfaces.Event) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		_ = eb.Publish(ctx, event)
	}()
}

// Subscribe registers a handler for an event type.
func (eb *InMemoryEventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	return nil
}

// Start marks the bus ready. It exists so the bus shares a lifecycle
// with the external integrations subscribed to it.
func (eb *InMemoryEventBus) Start(ctx context.Context) error {
	eb.logger.Info("event bus started")
	return nil
}

// Stop waits for in-flight async publishes to finish.
func (eb *InMemoryEventBus) Stop() error {
	eb.wg.Wait()
	eb.logger.Info("event bus stopped")
	return nil
}
