package order

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdos/desserts-relay/internal/docstore"
	"github.com/kdos/desserts-relay/internal/testutil"
)

const testCollection = "orders"

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func fetchOrder(t *testing.T, store *docstore.Store, id string) Order {
	t.Helper()
	ctx := context.Background()
	sub, err := store.Subscribe(ctx, testCollection, "placedAt", docstore.Desc)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snap := <-sub.Snapshots()
	for _, doc := range snap {
		if doc.ID == id {
			o, err := Decode(doc.ID, doc.Data)
			require.NoError(t, err)
			return o
		}
	}
	t.Fatalf("order %s not found in snapshot", id)
	return Order{}
}

func TestCreateOrder_VanillaMilkshakeCollection(t *testing.T) {
	store := newTestStore(t)
	clock := testutil.NewClock(time.Date(2025, 6, 1, 14, 5, 0, 0, time.UTC))
	engine := NewEngine(store, testCollection, WithClock(clock))

	cart := &Cart{}
	cart.AddMilkshake(MilkshakeSelection{
		Flavour: "Vanilla",
		Size:    SizeRegular,
		Qty:     1,
		Pack:    true,
	})

	o, err := engine.CreateOrder(context.Background(), cart, ServiceCollection, 10, "")
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusNew, o.Status)
	assert.Nil(t, o.DoneAt)
	assert.Equal(t, 10, o.EtaMins)
	assert.Equal(t, ServiceCollection, o.ServiceType)
	assert.Equal(t, clock.Now().UnixMilli()%100000, o.Number)

	require.Len(t, o.Items, 1)
	item := o.Items[0]
	assert.Equal(t, "Vanilla Milkshake", item.Name)
	assert.Equal(t, 1, item.Qty)
	require.NotNil(t, item.Pack)
	assert.True(t, *item.Pack)

	// Round-trips through the store intact.
	stored := fetchOrder(t, store, o.ID)
	assert.Equal(t, o.Number, stored.Number)
	assert.Equal(t, StatusNew, stored.Status)
	assert.True(t, stored.PlacedAt.Equal(o.PlacedAt))
}

func TestCreateOrder_Validation(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)
	ctx := context.Background()

	cart := &Cart{}
	cart.AddCake(CakeSelection{Name: "Kinder Brownie", Qty: 1})

	tests := []struct {
		name    string
		cart    *Cart
		service ServiceType
		code    ValidationCode
	}{
		{"nil cart", nil, ServiceWaiting, CodeEmptyCart},
		{"empty cart", &Cart{}, ServiceWaiting, CodeEmptyCart},
		{"missing service type", cart, "", CodeMissingServiceType},
		{"unknown service type", cart, ServiceType("Drive-Thru"), CodeMissingServiceType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CreateOrder(ctx, tt.cart, tt.service, 10, "")
			require.Error(t, err)
			require.True(t, IsValidationError(err))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.code, ve.Code)
		})
	}

	// Nothing reached the store.
	_, err := store.EnsureIdentity(ctx)
	require.NoError(t, err)
	snap, err := store.QueryWhere(ctx, testCollection, "status", string(StatusNew))
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestCreateOrder_NoteAppliedToEveryItem(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)

	cart := &Cart{}
	cart.AddMilkshake(MilkshakeSelection{Flavour: "Oreo", Size: SizeRegular, Qty: 1})
	cart.AddCake(CakeSelection{Name: "Chocolate Volcano", Qty: 1})

	o, err := engine.CreateOrder(context.Background(), cart, ServiceWaiting, 5, "No cream on shake")
	require.NoError(t, err)
	for _, item := range o.Items {
		assert.Equal(t, "No cream on shake", item.Notes)
	}

	// The cart itself is untouched.
	for _, item := range cart.Items() {
		assert.Empty(t, item.Notes)
	}
}

func TestAdvance_DoneSetsDoneAt(t *testing.T) {
	store := newTestStore(t)
	clock := testutil.NewClock(time.Date(2025, 6, 1, 14, 5, 0, 0, time.UTC))
	engine := NewEngine(store, testCollection, WithClock(clock))
	ctx := context.Background()

	cart := &Cart{}
	cart.AddCake(CakeSelection{Name: "Kinder Brownie", Qty: 1})
	o, err := engine.CreateOrder(ctx, cart, ServiceDelivery, 15, "")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	require.NoError(t, engine.Advance(ctx, o.ID, StatusDone))

	stored := fetchOrder(t, store, o.ID)
	assert.Equal(t, StatusDone, stored.Status)
	require.NotNil(t, stored.DoneAt)
	assert.True(t, stored.DoneAt.Equal(clock.Now().UTC()))
}

func TestAdvance_DoneAtPresentIffDone(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)
	ctx := context.Background()

	cart := &Cart{}
	cart.AddCake(CakeSelection{Name: "Ferraro Brownie", Qty: 1})
	o, err := engine.CreateOrder(ctx, cart, ServiceWaiting, 5, "")
	require.NoError(t, err)

	for _, target := range []Status{StatusInProgress, StatusReady} {
		require.NoError(t, engine.Advance(ctx, o.ID, target))
		stored := fetchOrder(t, store, o.ID)
		assert.Equal(t, target, stored.Status)
		assert.Nil(t, stored.DoneAt, "doneAt must be absent before DONE")
	}

	require.NoError(t, engine.Advance(ctx, o.ID, StatusDone))
	stored := fetchOrder(t, store, o.ID)
	require.NotNil(t, stored.DoneAt)
}

func TestAdvance_SkipTransitionPermitted(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)
	ctx := context.Background()

	cart := &Cart{}
	cart.AddCake(CakeSelection{Name: "Chocolate Fudge Cake", Qty: 1})
	o, err := engine.CreateOrder(ctx, cart, ServiceWaiting, 5, "")
	require.NoError(t, err)

	// NEW directly to DONE, no intermediate states.
	require.NoError(t, engine.Advance(ctx, o.ID, StatusDone))
	stored := fetchOrder(t, store, o.ID)
	assert.Equal(t, StatusDone, stored.Status)
	require.NotNil(t, stored.DoneAt)
}

func TestAdvance_PatchPreservesImmutableFields(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)
	ctx := context.Background()

	cart := &Cart{}
	cart.AddIceCream(IceCreamSelection{Scoops: 2, Flavours: []string{"Vanilla", "Biscoff"}, Qty: 1})
	o, err := engine.CreateOrder(ctx, cart, ServiceCollection, 10, "extra napkins")
	require.NoError(t, err)

	before := fetchOrder(t, store, o.ID)
	require.NoError(t, engine.Advance(ctx, o.ID, StatusInProgress))
	after := fetchOrder(t, store, o.ID)

	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Number, after.Number)
	assert.Equal(t, before.EtaMins, after.EtaMins)
	assert.Equal(t, before.ServiceType, after.ServiceType)
	assert.True(t, before.PlacedAt.Equal(after.PlacedAt))
}

func TestAdvance_InvalidTargets(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)
	ctx := context.Background()

	for _, target := range []Status{StatusNew, Status("CANCELLED"), Status("")} {
		err := engine.Advance(ctx, "whatever", target)
		require.Error(t, err)
		assert.True(t, IsValidationError(err), "target %q", target)
	}
}

func TestAdvance_UnknownOrder(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testCollection)

	err := engine.Advance(context.Background(), "no-such-order", StatusReady)
	require.Error(t, err)
	assert.True(t, docstore.IsNotFound(err))
}
