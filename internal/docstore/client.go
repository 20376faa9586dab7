package docstore

import "context"

// Document is a single stored document: the store-assigned id plus the raw
// JSON body. The id is never part of the body.
type Document struct {
	ID   string
	Data []byte
}

// Snapshot is a full point-in-time listing of a collection, in the order
// requested at Subscribe time. Each snapshot completely replaces the one
// before it.
type Snapshot []Document

// Direction controls snapshot and query ordering.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Subscription is a live snapshot stream. Unsubscribe must be called
// exactly once by the owning context; it closes the channel returned by
// Snapshots.
type Subscription interface {
	// Snapshots returns the snapshot channel. The channel is closed by
	// Unsubscribe.
	Snapshots() <-chan Snapshot

	// Unsubscribe tears the stream down. Safe to call more than once;
	// only the first call has an effect.
	Unsubscribe()
}

// Client is the order store contract consumed by the lifecycle engine, the
// sync reducer and the cleanup scheduler.
type Client interface {
	// EnsureIdentity resolves the caller's identity with the store,
	// minting an anonymous one on first use. It must be awaited before
	// any other call on every cold entry point.
	EnsureIdentity(ctx context.Context) (string, error)

	// Subscribe opens a long-lived snapshot stream over the collection,
	// ordered by the given top-level JSON field. The initial snapshot is
	// delivered promptly.
	Subscribe(ctx context.Context, collection, sortField string, dir Direction) (Subscription, error)

	// Create stores a new document and returns its assigned id.
	Create(ctx context.Context, collection string, doc []byte) (string, error)

	// MergePatch applies the given top-level fields to an existing
	// document, leaving all other fields untouched. A null value removes
	// the field.
	MergePatch(ctx context.Context, collection, id string, patch []byte) error

	// QueryWhere returns all documents whose top-level field equals the
	// given value.
	QueryWhere(ctx context.Context, collection, field string, equals any) (Snapshot, error)

	// Delete removes a document. Deleting an absent document is not an
	// error.
	Delete(ctx context.Context, collection, id string) error
}
