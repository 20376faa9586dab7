package docstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveSnapshot(t *testing.T, sub Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func docField(t *testing.T, doc Document, field string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Data, &fields))
	return string(fields[field])
}

func TestSubscribe_InitialSnapshotBuffered(t *testing.T) {
	store := authedStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "orders", []byte(`{"placedAt":"2025-06-01T14:05:00Z"}`))
	require.NoError(t, err)

	sub, err := store.Subscribe(ctx, "orders", "placedAt", Desc)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// The first receive never waits on a write.
	snap := receiveSnapshot(t, sub)
	assert.Len(t, snap, 1)
}

func TestSubscribe_InvalidDirection(t *testing.T) {
	store := authedStore(t)

	_, err := store.Subscribe(context.Background(), "orders", "placedAt", Direction("SIDEWAYS"))
	assert.Error(t, err)
}

func TestSubscribe_SnapshotOnEveryWrite(t *testing.T) {
	store := authedStore(t)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "orders", "placedAt", Desc)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Empty(t, receiveSnapshot(t, sub))

	id, err := store.Create(ctx, "orders", []byte(`{"placedAt":"2025-06-01T14:05:00Z","status":"NEW"}`))
	require.NoError(t, err)
	snap := receiveSnapshot(t, sub)
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)

	require.NoError(t, store.MergePatch(ctx, "orders", id, []byte(`{"status":"DONE"}`)))
	snap = receiveSnapshot(t, sub)
	require.Len(t, snap, 1)
	assert.Equal(t, `"DONE"`, docField(t, snap[0], "status"))

	require.NoError(t, store.Delete(ctx, "orders", id))
	assert.Empty(t, receiveSnapshot(t, sub))
}

func TestSubscribe_OrderedByFieldDescending(t *testing.T) {
	store := authedStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "orders", []byte(`{"placedAt":"2025-06-01T10:00:00Z","number":1}`))
	require.NoError(t, err)
	_, err = store.Create(ctx, "orders", []byte(`{"placedAt":"2025-06-01T12:00:00Z","number":2}`))
	require.NoError(t, err)
	_, err = store.Create(ctx, "orders", []byte(`{"placedAt":"2025-06-01T11:00:00Z","number":3}`))
	require.NoError(t, err)

	sub, err := store.Subscribe(ctx, "orders", "placedAt", Desc)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snap := receiveSnapshot(t, sub)
	require.Len(t, snap, 3)
	assert.Equal(t, "2", docField(t, snap[0], "number"))
	assert.Equal(t, "3", docField(t, snap[1], "number"))
	assert.Equal(t, "1", docField(t, snap[2], "number"))
}

func TestSubscribe_LatestWins(t *testing.T) {
	store := authedStore(t)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "orders", "placedAt", Asc)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Three writes without a single receive: the buffer holds only the
	// newest snapshot.
	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, "orders", []byte(`{"placedAt":"2025-06-01T10:00:00Z"}`))
		require.NoError(t, err)
	}

	snap := receiveSnapshot(t, sub)
	assert.Len(t, snap, 3)
}

func TestSubscribe_CollectionIsolation(t *testing.T) {
	store := authedStore(t)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "orders", "placedAt", Asc)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Empty(t, receiveSnapshot(t, sub))

	_, err = store.Create(ctx, "menus", []byte(`{"placedAt":"2025-06-01T10:00:00Z"}`))
	require.NoError(t, err)

	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot for unrelated collection: %v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	store := authedStore(t)

	sub, err := store.Subscribe(context.Background(), "orders", "placedAt", Asc)
	require.NoError(t, err)

	receiveSnapshot(t, sub)
	sub.Unsubscribe()
	sub.Unsubscribe() // second call is a no-op

	_, ok := <-sub.Snapshots()
	assert.False(t, ok)
}

func TestClose_UnsubscribesAll(t *testing.T) {
	store := authedStore(t)

	sub, err := store.Subscribe(context.Background(), "orders", "placedAt", Asc)
	require.NoError(t, err)

	receiveSnapshot(t, sub)
	require.NoError(t, store.Close())

	_, ok := <-sub.Snapshots()
	assert.False(t, ok)
}
