// Package connectivity tracks whether the remote ledger is reachable.
// The platform (or the prober) pushes state in; the sync engine subscribes to transitions.
package connectivity

import (
	"sync"

	"github.com/rs/zerolog"
)

// Listener is called with the new state after every transition
type Listener func(online bool)

// Monitor holds the current connectivity state
type Monitor struct {
	mu        sync.RWMutex
	notifyMu  sync.Mutex // keeps listener calls in transition order
	online    bool
	listeners map[uint64]Listener
	nextID    uint64
	log       zerolog.Logger
}

// NewMonitor creates a monitor with an initial state
func NewMonitor(initial bool, log zerolog.Logger) *Monitor {
	return &Monitor{
		online:    initial,
		listeners: make(map[uint64]Listener),
		log:       log.With().Str("component", "connectivity").Logger(),
	}
}

// Online reports the current state
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records a new state. Listeners are only called when the state actually changes,
// synchronously and outside the state lock.
func (m *Monitor) Set(online bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("Connectivity changed")

	for _, l := range listeners {
		l(online)
	}
}

// Subscribe registers a listener and returns a function that removes it
func (m *Monitor) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = l
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}
