package persistence

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// DefaultFlushInterval is used when no interval is configured.
const DefaultFlushInterval = 5 * time.Second

// Flusher periodically captures the node state and saves it when it
// changed since the last save.
type Flusher struct {
	store    *NodeStateStore
	node     *model.Node
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	last      *NodeState
	suspended bool
}

// NewFlusher creates a flusher for node. A zero interval selects
// DefaultFlushInterval.
func NewFlusher(store *NodeStateStore, node *model.Node, interval time.Duration, logger *slog.Logger) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flusher{store: store, node: node, interval: interval, logger: logger}
}

// Prime records state as already saved, typically the state restored at boot.
func (f *Flusher) Prime(state *NodeState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = state
}

// Suspend stops all further saves. A factory reset suspends the flusher
// before erasing so the erased file is not rewritten.
func (f *Flusher) Suspend() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended = true
}

// Flush saves the state if it changed. It reports whether a save happened.
func (f *Flusher) Flush(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.suspended {
		return false, nil
	}
	state := Capture(ctx, f.node)
	if f.last != nil && Equal(state, f.last) {
		return false, nil
	}
	if err := f.store.Save(state); err != nil {
		return false, err
	}
	f.last = state
	return true, nil
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := f.Flush(context.Background()); err != nil {
				f.logger.Error("final state flush failed", "path", f.store.Path(), "error", err)
			}
			return
		case <-ticker.C:
			saved, err := f.Flush(ctx)
			if err != nil {
				f.logger.Error("state flush failed", "path", f.store.Path(), "error", err)
				continue
			}
			if saved {
				f.logger.Debug("state saved", "path", f.store.Path())
			}
		}
	}
}
