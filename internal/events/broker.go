// Package events fans catalog change events out to subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// DefaultBufferSize is the per-subscriber channel capacity used when none is configured.
const DefaultBufferSize = 16

// Subscription is a single consumer of the event feed.
type Subscription struct {
	id     uint64
	events chan model.ItemEvent
}

// Events returns the channel delivering events. It is closed on Unsubscribe or Close.
func (s *Subscription) Events() <-chan model.ItemEvent {
	return s.events
}

// Broker delivers every published event to all current subscribers.
// Publish never blocks: an event is dropped for a subscriber whose buffer is full.
type Broker struct {
	logger     *zap.Logger
	bufferSize int

	mu          sync.RWMutex
	subscribers map[uint64]*Subscription
	nextID      uint64
	closed      bool

	dropped atomic.Uint64
}

// NewBroker creates a new Broker. A bufferSize below one uses DefaultBufferSize.
func NewBroker(bufferSize int, logger *zap.Logger) *Broker {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}

	return &Broker{
		logger:      logger,
		bufferSize:  bufferSize,
		subscribers: make(map[uint64]*Subscription),
	}
}

// Subscribe registers a new subscriber. On a closed broker the returned
// subscription's channel is already closed.
func (b *Broker) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		events: make(chan model.ItemEvent, b.bufferSize),
	}

	if b.closed {
		close(sub.events)
		return sub
	}

	b.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes sub and closes its channel. Repeated calls are no-ops.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.id]; !ok {
		return
	}

	delete(b.subscribers, sub.id)
	close(sub.events)
}

// Publish implements service.Publisher.
func (b *Broker) Publish(event model.ItemEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped for slow subscriber",
				zap.Uint64("subscriber", sub.id),
				zap.String("type", string(event.Type)),
				zap.Int64("item_id", event.ItemID),
			)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Dropped returns the number of events discarded because a subscriber lagged.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unsubscribes everyone. Later publishes are discarded.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.events)
		delete(b.subscribers, id)
	}
}
