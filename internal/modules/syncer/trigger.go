package syncer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/connectivity"
)

// ConnectivitySource reports state and announces transitions
type ConnectivitySource interface {
	Online() bool
	Subscribe(l connectivity.Listener) (unsubscribe func())
}

// Loader reads the local collection back from durable storage
type Loader interface {
	Reload(ctx context.Context) (int, error)
}

// Trigger starts bulk syncs once the local collection is loaded and on every
// offline to online transition
type Trigger struct {
	engine      *Engine
	source      ConnectivitySource
	loader      Loader
	mu          sync.Mutex
	unsubscribe func()
	running     sync.WaitGroup
	stopped     bool
	log         zerolog.Logger
}

// NewTrigger creates a trigger; call Start to activate it
func NewTrigger(engine *Engine, source ConnectivitySource, loader Loader, log zerolog.Logger) *Trigger {
	return &Trigger{
		engine: engine,
		source: source,
		loader: loader,
		log:    log.With().Str("component", "sync_trigger").Logger(),
	}
}

// Start loads the local collection, subscribes to connectivity and fires the startup sync
func (t *Trigger) Start(ctx context.Context) error {
	count, err := t.loader.Reload(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.stopped = false
	t.unsubscribe = t.source.Subscribe(t.onConnectivityChange)
	t.mu.Unlock()

	t.log.Info().Int("transactions", count).Bool("online", t.source.Online()).Msg("Sync trigger started")
	t.Fire("startup")
	return nil
}

// Stop unsubscribes and waits for cycles launched by the trigger to finish
func (t *Trigger) Stop() {
	t.mu.Lock()
	t.stopped = true
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.mu.Unlock()

	t.running.Wait()
	t.log.Info().Msg("Sync trigger stopped")
}

// Fire launches a bulk sync in the background. It is a no-op after Stop.
func (t *Trigger) Fire(reason string) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.running.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.running.Done()
		report := t.engine.SyncAll(context.Background())
		t.log.Debug().
			Str("reason", reason).
			Str("skipped", string(report.Skipped)).
			Int("uploaded", report.Uploaded).
			Int("merged", report.Merged).
			Msg("Triggered sync finished")
	}()
}

func (t *Trigger) onConnectivityChange(online bool) {
	if online {
		t.Fire("connectivity")
	}
}
