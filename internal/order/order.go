package order

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is an order's position in the lifecycle.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusReady, StatusDone:
		return true
	}
	return false
}

// ServiceType is how the customer receives the order.
type ServiceType string

const (
	ServiceWaiting    ServiceType = "Waiting"
	ServiceDelivery   ServiceType = "Delivery"
	ServiceCollection ServiceType = "Collection"
)

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceWaiting, ServiceDelivery, ServiceCollection:
		return true
	}
	return false
}

// Kind discriminates line item variants.
type Kind string

const (
	KindMilkshake Kind = "milkshake"
	KindIceCream  Kind = "icecream"
	KindCake      Kind = "cake"
)

// Milkshake sizes.
const (
	SizeRegular = "Regular"
	SizeLarge   = "Large"
)

// Cake sides.
const (
	SideNone    = "None"
	SideCustard = "Custard"
	SideVanilla = "Vanilla Ice Cream"
)

// LineItem is one cart entry. Kind decides which variant fields are
// populated; the rest stay at their zero value and are omitted from the
// stored document.
type LineItem struct {
	// ID is client-generated and unique within the order's cart only.
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Name is the display string derived from the selections at add
	// time and frozen thereafter.
	Name string `json:"name"`
	Qty  int    `json:"qty"`

	// Notes is the order note, applied uniformly to every item when the
	// order is sent with one.
	Notes string `json:"notes,omitempty"`

	// Milkshake. Pack is only present when Qty == 1; Whipped is present
	// on every milkshake, even when false.
	Size    string `json:"size,omitempty"`
	Whipped *bool  `json:"whipped,omitempty"`
	Pack    *bool  `json:"pack,omitempty"`

	// Ice cream. len(Flavours) == Scoops, enforced at cart-build time.
	Scoops   int      `json:"scoops,omitempty"`
	Flavours []string `json:"flavours,omitempty"`

	// Cake.
	Side string `json:"side,omitempty"`
}

// Order is the document relayed between terminals.
type Order struct {
	// ID is assigned by the store on creation and lives outside the
	// document body.
	ID string `json:"-"`

	// Number is a human-readable reference derived from creation time.
	// Not guaranteed unique, but practically distinguishing within a
	// shift.
	Number int64 `json:"number"`

	// Items in the sequence they were added to the cart.
	Items []LineItem `json:"items"`

	PlacedAt time.Time  `json:"placedAt"`
	DoneAt   *time.Time `json:"doneAt,omitempty"`

	Status      Status      `json:"status"`
	EtaMins     int         `json:"etaMins"`
	ServiceType ServiceType `json:"serviceType"`
}

// Done reports whether the order has reached its terminal state.
func (o Order) Done() bool {
	return o.Status == StatusDone
}

// Encode serializes the order into its store document body. The id is
// excluded: it belongs to the store, not the document.
func (o Order) Encode() ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	return data, nil
}

// Decode parses a store document body into an Order and attaches the
// store-assigned id.
func Decode(id string, data []byte) (Order, error) {
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	o.ID = id
	return o, nil
}
