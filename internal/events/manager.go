package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event to the bus and logs it
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)

	eventJSON, _ := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	})

	logEvent := m.log.Debug()
	if eventType.IsNotification() {
		logEvent = m.log.Info()
	}
	logEvent.
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// Notify publishes a {type, message} notification on the sync channel
func (m *Manager) Notify(eventType EventType, message string) {
	m.Emit(eventType, "sync", map[string]interface{}{"message": message})
}

// SubscribeNotifications registers fn for every sync notification.
// The returned function removes the subscription.
func (m *Manager) SubscribeNotifications(fn func(Notification)) func() {
	ids := make([]SubscriptionID, 0, 3)
	for _, t := range []EventType{SyncSuccess, SyncFailure, SyncProgress} {
		ids = append(ids, m.bus.Subscribe(t, func(e *Event) {
			fn(Notification{Type: e.Type, Message: e.Message()})
		}))
	}
	return func() {
		for _, id := range ids {
			m.bus.Unsubscribe(id)
		}
	}
}
