// Package syncer reconciles the local ledger with the remote ledger.
// At most one sync cycle runs at a time; requests that arrive while a cycle is
// in flight are dropped, not queued.
package syncer

import (
	"sync"
	"time"
)

// Guard is a single-flight token owned by one engine instance
type Guard struct {
	mu    sync.Mutex
	held  bool
	owner string
	since time.Time
}

// TryAcquire takes the token if it is free. The returned release function is
// safe to call more than once and should be deferred by the caller.
func (g *Guard) TryAcquire(owner string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return func() {}, false
	}
	g.held = true
	g.owner = owner
	g.since = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.held = false
			g.owner = ""
			g.since = time.Time{}
		})
	}, true
}

// Holder reports who holds the token and since when
func (g *Guard) Holder() (owner string, since time.Time, held bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner, g.since, g.held
}
