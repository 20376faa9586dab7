package docstore

import (
	"context"
	"fmt"
	"sync"
)

// subscription is the store-side state of one live snapshot stream.
//
// The channel has capacity 1 and is written latest-wins: a consumer that
// falls behind sees the newest snapshot, never a backlog, and a writer is
// never blocked by a slow consumer.
type subscription struct {
	store      *Store
	collection string
	sortField  string
	dir        Direction
	ch         chan Snapshot
	once       sync.Once
}

// Snapshots returns the snapshot channel. Closed by Unsubscribe.
func (sub *subscription) Snapshots() <-chan Snapshot {
	return sub.ch
}

// Unsubscribe removes the subscription from the store and closes the
// channel. Only the first call has an effect.
func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		st := sub.store
		st.mu.Lock()
		delete(st.subs, sub)
		close(sub.ch)
		st.mu.Unlock()
	})
}

// Subscribe opens a snapshot stream over the collection ordered by the
// given top-level JSON field. The initial snapshot is buffered before
// Subscribe returns, so the first receive never waits on a write.
func (s *Store) Subscribe(ctx context.Context, collection, sortField string, dir Direction) (Subscription, error) {
	if err := s.requireIdentity("subscribe"); err != nil {
		return nil, err
	}
	if dir != Asc && dir != Desc {
		return nil, fmt.Errorf("subscribe: invalid direction %q", dir)
	}

	snap, err := s.snapshot(ctx, collection, sortField, dir)
	if err != nil {
		return nil, transportErr(CodeUnavailable, "subscribe", err)
	}

	sub := &subscription{
		store:      s,
		collection: collection,
		sortField:  sortField,
		dir:        dir,
		ch:         make(chan Snapshot, 1),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	push(sub, snap)
	s.mu.Unlock()

	return sub, nil
}

// notify re-queries the collection per subscriber sort order and fans out
// fresh snapshots. Called after every committed write. Runs under s.mu so
// a concurrent Unsubscribe cannot close a channel mid-push.
func (s *Store) notify(ctx context.Context, collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		snap, err := s.snapshot(ctx, sub.collection, sub.sortField, sub.dir)
		if err != nil {
			// The subscriber keeps its last snapshot; the next write
			// will try again.
			s.log.Warnw("snapshot refresh failed",
				"collection", collection, "error", err)
			continue
		}
		push(sub, snap)
	}
}

// push delivers latest-wins: if the buffer is occupied, the stale snapshot
// is dropped before the new one goes in. Never blocks.
func push(sub *subscription, snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}
