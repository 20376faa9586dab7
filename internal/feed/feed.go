// Package feed converts the store's snapshot stream into the canonical
// in-memory order list both terminal UIs render from.
package feed

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kdos/desserts-relay/internal/docstore"
	"github.com/kdos/desserts-relay/internal/order"
)

// Feed owns the canonical order list for one terminal. Each applied
// snapshot replaces the previous list entirely - there is no merging of
// local writes against the stream - and the active/completed partitions
// are recomputed from scratch so no derived state can diverge after a
// merge-patch.
//
// Store ordering (placedAt descending) is preserved as delivered; the
// feed never re-sorts.
type Feed struct {
	mu        sync.RWMutex
	orders    []order.Order
	active    []order.Order
	completed []order.Order
	seen      map[string]struct{}
	primed    bool

	onNew func(order.Order)
	log   *zap.SugaredLogger
}

// Option configures a Feed.
type Option func(*Feed)

// WithChime registers a callback fired once per order id that appears in
// a snapshot without having been seen before. The first snapshot primes
// the seen set without firing, so a terminal restart does not replay
// alerts for orders already on the board.
//
// The chime is driven by snapshot arrival, not by the local send call:
// a receiver hears every new order, including ones it did not originate,
// and a sender does not alert itself twice.
func WithChime(fn func(order.Order)) Option {
	return func(f *Feed) {
		f.onNew = fn
	}
}

// WithLogger sets the feed logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(f *Feed) {
		if log != nil {
			f.log = log
		}
	}
}

// New creates an empty Feed. State is empty until the first snapshot is
// applied; there is no teardown other than process exit.
func New(opts ...Option) *Feed {
	f := &Feed{
		seen: make(map[string]struct{}),
		log:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Apply replaces the feed's state with the given snapshot.
//
// If any document fails to decode the whole snapshot is discarded and the
// previous state is kept - the terminal freezes on stale-but-present data
// rather than clearing to empty.
func (f *Feed) Apply(snap docstore.Snapshot) error {
	decoded := make([]order.Order, 0, len(snap))
	for _, doc := range snap {
		o, err := order.Decode(doc.ID, doc.Data)
		if err != nil {
			return fmt.Errorf("apply snapshot: %w", err)
		}
		decoded = append(decoded, o)
	}

	var fresh []order.Order

	f.mu.Lock()
	f.orders = decoded
	f.active = f.active[:0]
	f.completed = f.completed[:0]
	for _, o := range decoded {
		if o.Done() {
			f.completed = append(f.completed, o)
		} else {
			f.active = append(f.active, o)
		}
		if _, ok := f.seen[o.ID]; !ok {
			f.seen[o.ID] = struct{}{}
			if f.primed {
				fresh = append(fresh, o)
			}
		}
	}
	f.primed = true
	f.mu.Unlock()

	if f.onNew != nil {
		for _, o := range fresh {
			f.onNew(o)
		}
	}
	return nil
}

// Run consumes the subscription until the context is cancelled or the
// stream closes, then unsubscribes exactly once. Snapshots that fail to
// apply are logged and skipped; the feed keeps its last good state.
func (f *Feed) Run(ctx context.Context, sub docstore.Subscription) {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if err := f.Apply(snap); err != nil {
				f.log.Warnw("snapshot rejected", "error", err)
			}
		}
	}
}

// All returns a copy of the full order list in store order.
func (f *Feed) All() []order.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyOrders(f.orders)
}

// Active returns a copy of the orders with status != DONE, in store order.
func (f *Feed) Active() []order.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyOrders(f.active)
}

// Completed returns a copy of the DONE orders, in store order.
func (f *Feed) Completed() []order.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyOrders(f.completed)
}

func copyOrders(src []order.Order) []order.Order {
	out := make([]order.Order, len(src))
	copy(out, src)
	return out
}
