package events

import (
	"sync"
	"time"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// Mutation actions carried by exception events.
const (
	ExceptionCreated = "exception.created"
	ExceptionUpdated = "exception.updated"
	ExceptionDeleted = "exception.deleted"
)

// Event describes one mutation of an exception record.
type Event struct {
	Type       string
	RecordID   int64
	Scope      model.Scope
	OccurredAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for exception mutations.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every mutation type.
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range []string{ExceptionCreated, ExceptionUpdated, ExceptionDeleted} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	// Handlers run synchronously; caller decides concurrency model.
	for _, handler := range handlers {
		handler(event)
	}
}
