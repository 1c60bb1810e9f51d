package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives events from the bus
type Handler func(*Event)

// SubscriptionID identifies a subscription for Unsubscribe
type SubscriptionID uint64

type subscription struct {
	eventType EventType // empty for wildcard subscriptions
	handler   Handler
}

// Bus is a fire-and-forget publish/subscribe channel.
// Every handler runs on its own goroutine; a panicking handler is logged and dropped.
type Bus struct {
	mu       sync.RWMutex
	subs     map[SubscriptionID]subscription
	nextID   SubscriptionID
	inflight sync.WaitGroup
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[SubscriptionID]subscription),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	return b.add(subscription{eventType: eventType, handler: handler})
}

// SubscribeAll registers handler for every event type
func (b *Bus) SubscribeAll(handler Handler) SubscriptionID {
	return b.add(subscription{handler: handler})
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Emit delivers an event to every matching subscriber without waiting for them
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.eventType == "" || sub.eventType == eventType {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.inflight.Add(1)
		go b.deliver(h, event)
	}
}

// Wait blocks until every delivery started so far has returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}

func (b *Bus) deliver(h Handler, event *Event) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	h(event)
}

func (b *Bus) add(sub subscription) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[b.nextID] = sub
	return b.nextID
}
