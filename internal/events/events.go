// Package events fans catalog and order changes out to subscribers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Type names a change event.
type Type string

const (
	ProductCreated     Type = "product.created"
	ProductUpdated     Type = "product.updated"
	ProductDeleted     Type = "product.deleted"
	StockChanged       Type = "stock.changed"
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	DiscountChanged    Type = "discount.changed"
	CatalogChanged     Type = "catalog.changed"
	SyncFailed         Type = "sync.failed"
	ImportCompleted    Type = "import.completed"
)

// Event is a single change notification.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"event"`
	AggregateID string    `json:"aggregateId,omitempty"`
	Data        any       `json:"data,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// New builds an event with a fresh id and timestamp.
func New(t Type, aggregateID string, data any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: aggregateID,
		Data:        data,
		Timestamp:   time.Now(),
	}
}

// Publisher receives events. Implementations must not block the caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers every event to all subscribed publishers in order.
type Bus struct {
	mu   sync.RWMutex
	subs []Publisher
}

// NewBus creates a bus with the given subscribers.
func NewBus(subs ...Publisher) *Bus {
	return &Bus{subs: subs}
}

// Subscribe adds a publisher to the fan-out.
func (b *Bus) Subscribe(p Publisher) {
	b.mu.Lock()
	b.subs = append(b.subs, p)
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		s.Publish(ctx, e)
	}
}

// LogPublisher writes events to the global logger at debug level.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) {
	log.Debug().
		Str("event", string(e.Type)).
		Str("event_id", e.ID).
		Str("aggregate_id", e.AggregateID).
		Msg("change event")
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// Recorder keeps published events in memory. Tests subscribe it to assert
// on emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the types of the recorded events in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
