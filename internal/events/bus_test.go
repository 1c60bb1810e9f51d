package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	received := make(chan *Event, 1)
	bus.Subscribe(SyncSuccess, func(e *Event) { received <- e })

	var other int32
	bus.Subscribe(SyncFailure, func(e *Event) { atomic.AddInt32(&other, 1) })

	bus.Emit(SyncSuccess, "sync", map[string]interface{}{"message": "done"})

	select {
	case e := <-received:
		assert.Equal(t, SyncSuccess, e.Type)
		assert.Equal(t, "done", e.Message())
		assert.Equal(t, "sync", e.Module)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	bus.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&other))
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var mu sync.Mutex
	var seen []EventType
	bus.SubscribeAll(func(e *Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	})

	bus.Emit(SyncProgress, "sync", nil)
	bus.Emit(TransactionAdded, "ledger", nil)
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []EventType{SyncProgress, TransactionAdded}, seen)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int32
	id := bus.Subscribe(SyncSuccess, func(e *Event) { atomic.AddInt32(&calls, 1) })

	bus.Emit(SyncSuccess, "sync", nil)
	bus.Wait()
	bus.Unsubscribe(id)
	bus.Emit(SyncSuccess, "sync", nil)
	bus.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	bus.Unsubscribe(id) // unknown ids are ignored
}

func TestBus_PanickingHandlerDoesNotAffectOthers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int32
	bus.Subscribe(SyncFailure, func(e *Event) { panic("subscriber bug") })
	bus.Subscribe(SyncFailure, func(e *Event) { atomic.AddInt32(&calls, 1) })

	require.NotPanics(t, func() {
		bus.Emit(SyncFailure, "sync", nil)
		bus.Wait()
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBus_EmitDoesNotWaitForSlowSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	release := make(chan struct{})
	bus.Subscribe(SyncProgress, func(e *Event) { <-release })

	done := make(chan struct{})
	go func() {
		bus.Emit(SyncProgress, "sync", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a subscriber")
	}
	close(release)
	bus.Wait()
}
