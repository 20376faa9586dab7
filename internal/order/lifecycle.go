package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/kdos/desserts-relay/internal/docstore"
)

// numberRange bounds the human-readable order reference derived from
// creation time.
const numberRange = 100000

// Clock supplies wall-clock time to the engine and the cleanup scheduler.
// Implemented by SystemClock (production) and testutil.Clock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Engine validates order operations and writes them through the store
// client. Both terminal roles drive it: the sender through CreateOrder,
// the receiver through Advance.
//
// The engine performs no retries: a failed write surfaces to the caller
// and is not queued.
type Engine struct {
	store      docstore.Client
	collection string
	clock      Clock
	log        *zap.SugaredLogger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock substitutes the wall clock. Used by tests.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates an Engine writing to the given collection.
func NewEngine(store docstore.Client, collection string, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		collection: collection,
		clock:      SystemClock{},
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOrder validates the cart and sends a NEW order.
//
// Rejected synchronously, before any write, when the cart is empty or the
// service type is unset. A non-empty note is applied uniformly to every
// line item. The order number is derived from creation time modulo a
// fixed range; placedAt is set to now and never changes.
//
// The returned Order carries the store-assigned id.
func (e *Engine) CreateOrder(ctx context.Context, cart *Cart, service ServiceType, etaMins int, note string) (Order, error) {
	if cart == nil || cart.Len() == 0 {
		return Order{}, validationErr(CodeEmptyCart, "cart has no items")
	}
	if !service.Valid() {
		return Order{}, validationErr(CodeMissingServiceType, "service type not selected")
	}

	items := cart.Items()
	if note != "" {
		note = norm.NFC.String(note)
		for i := range items {
			items[i].Notes = note
		}
	}

	now := e.clock.Now().UTC()
	o := Order{
		Number:      now.UnixMilli() % numberRange,
		Items:       items,
		PlacedAt:    now,
		Status:      StatusNew,
		EtaMins:     etaMins,
		ServiceType: service,
	}

	if _, err := e.store.EnsureIdentity(ctx); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	doc, err := o.Encode()
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	id, err := e.store.Create(ctx, e.collection, doc)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	o.ID = id

	e.log.Infow("order sent",
		"id", o.ID, "number", o.Number,
		"items", len(o.Items), "service", o.ServiceType)
	return o, nil
}

// Advance requests a status for an order. IN_PROGRESS, READY and DONE may
// be requested regardless of the order's current status - skips such as
// NEW directly to DONE are permitted. Requesting NEW is not.
//
// The write is a merge-patch of the changed fields only: status, plus
// doneAt set atomically when the target is DONE. Cart contents, placedAt,
// number, etaMins and serviceType are never touched.
func (e *Engine) Advance(ctx context.Context, id string, target Status) error {
	if !target.Valid() || target == StatusNew {
		return validationErr(CodeInvalidStatus,
			fmt.Sprintf("cannot advance to %q", target))
	}

	patch := map[string]any{"status": target}
	if target == StatusDone {
		patch["doneAt"] = e.clock.Now().UTC().Format(time.RFC3339Nano)
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("advance order: %w", err)
	}

	if _, err := e.store.EnsureIdentity(ctx); err != nil {
		return fmt.Errorf("advance order: %w", err)
	}
	if err := e.store.MergePatch(ctx, e.collection, id, body); err != nil {
		return fmt.Errorf("advance order: %w", err)
	}

	e.log.Infow("order advanced", "id", id, "status", target)
	return nil
}
