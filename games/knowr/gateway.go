/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package knowr

import (
	"context"
	"sync"
)

// StateKey is the storage key of the persisted snapshot. The suffix is the
// format version.
const StateKey = "knowr.state.v1"

// Store is a key-value store holding raw snapshot bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Gateway loads and saves snapshots. Failures are logged and never reach
// the caller. Saves are queued and written by a single goroutine, always
// writing the most recent snapshot, so the stored state follows the order
// in which saves were issued.
type Gateway struct {
	store Store
	logf  LogFunc

	mu      sync.Mutex
	pending *Snapshot
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewGateway starts the writer goroutine. Call Close to flush and stop it.
func NewGateway(store Store, logf LogFunc) *Gateway {
	if logf == nil {
		logf = discardLog
	}

	g := &Gateway{
		store: store,
		logf:  logf,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	go g.run()

	return g
}

// Load returns the stored snapshot. A missing, unreadable or corrupt
// snapshot is reported as absent.
func (g *Gateway) Load(ctx context.Context) (Snapshot, bool) {
	data, ok, err := g.store.Get(ctx, StateKey)
	if err != nil {
		g.logf("STORE: Failed to load state: %v", err)

		return Snapshot{}, false
	}
	if !ok || len(data) == 0 {
		return Snapshot{}, false
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		g.logf("STORE: Failed to load state: %v", err)

		return Snapshot{}, false
	}

	return snap, true
}

// Save queues snap for writing and returns immediately. A snapshot still
// waiting to be written is replaced by the newer one.
func (g *Gateway) Save(snap Snapshot) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		g.logf("STORE: Dropped save after close")

		return
	}
	g.pending = &snap

	select {
	case g.wake <- struct{}{}:
	default:
	}
	g.mu.Unlock()
}

func (g *Gateway) run() {
	defer close(g.done)

	for range g.wake {
		g.flush(context.Background())
	}

	g.flush(context.Background())
}

func (g *Gateway) flush(ctx context.Context) {
	g.mu.Lock()
	snap := g.pending
	g.pending = nil
	g.mu.Unlock()

	if snap == nil {
		return
	}

	data, err := EncodeSnapshot(*snap)
	if err != nil {
		g.logf("STORE: Failed to save state: %v", err)

		return
	}

	if err := g.store.Put(ctx, StateKey, data); err != nil {
		g.logf("STORE: Failed to save state: %v", err)
	}
}

// Close stops accepting saves and waits for the last queued snapshot to be
// written, or for ctx to end.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()

		return nil
	}
	g.closed = true
	close(g.wake)
	g.mu.Unlock()

	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
