package order

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Cart accumulates line items on the sending terminal before an order is
// sent. Adds never fail: selection validity against the catalog is the
// caller's concern, while structural invariants (flavour count matching
// scoops, pack only on single shakes) are enforced here.
//
// Cart is not safe for concurrent use; each terminal builds one cart at a
// time on its UI context.
type Cart struct {
	items []LineItem
}

// MilkshakeSelection captures the milkshake picker state.
type MilkshakeSelection struct {
	Flavour string
	Gourmet bool
	Size    string // SizeRegular | SizeLarge
	Qty     int
	Whipped bool
	Pack    bool
}

// IceCreamSelection captures the ice cream picker state.
type IceCreamSelection struct {
	Scoops   int // 1..3
	Flavours []string
	Qty      int
}

// CakeSelection captures the cake picker state.
type CakeSelection struct {
	Name string
	Side string // SideNone | SideCustard | SideVanilla
	Qty  int
}

// AddMilkshake appends a milkshake line item. The display name is derived
// once, here: "<flavour> Milkshake", with a "Gourmet " prefix for gourmet
// flavours. Pack is only carried when the quantity is exactly one.
func (c *Cart) AddMilkshake(sel MilkshakeSelection) LineItem {
	prefix := ""
	if sel.Gourmet {
		prefix = "Gourmet "
	}
	whipped := sel.Whipped
	item := LineItem{
		ID:      uuid.NewString(),
		Kind:    KindMilkshake,
		Name:    fmt.Sprintf("%s%s Milkshake", prefix, sel.Flavour),
		Qty:     max(1, sel.Qty),
		Size:    sel.Size,
		Whipped: &whipped,
	}
	if item.Qty == 1 {
		pack := sel.Pack
		item.Pack = &pack
	}
	c.items = append(c.items, item)
	return item
}

// AddIceCream appends an ice cream line item. The flavour list is resized
// to exactly match the scoop count before the name is derived, so
// len(Flavours) == Scoops holds for every stored item.
func (c *Cart) AddIceCream(sel IceCreamSelection) LineItem {
	scoops := sel.Scoops
	if scoops < 1 {
		scoops = 1
	}
	if scoops > 3 {
		scoops = 3
	}
	fallback := ""
	if len(sel.Flavours) > 0 {
		fallback = sel.Flavours[0]
	}
	flavours := ResizeFlavours(sel.Flavours, scoops, fallback)
	item := LineItem{
		ID:       uuid.NewString(),
		Kind:     KindIceCream,
		Name:     strings.Join(flavours, " / ") + " Ice Cream",
		Qty:      max(1, sel.Qty),
		Scoops:   scoops,
		Flavours: flavours,
	}
	c.items = append(c.items, item)
	return item
}

// AddCake appends a cake line item. The cake's own name is the display
// name; the side is carried separately.
func (c *Cart) AddCake(sel CakeSelection) LineItem {
	side := sel.Side
	if side == "" {
		side = SideNone
	}
	item := LineItem{
		ID:   uuid.NewString(),
		Kind: KindCake,
		Name: sel.Name,
		Qty:  max(1, sel.Qty),
		Side: side,
	}
	c.items = append(c.items, item)
	return item
}

// Remove drops the line item with the given id. Returns whether an item
// was removed.
func (c *Cart) Remove(id string) bool {
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Len returns the number of line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns a copy of the line items in add order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// ResizeFlavours adjusts a flavour list to exactly n entries. Growing
// repeats the last entry (or the fallback when the list is empty);
// shrinking truncates. Existing entries are never altered.
func ResizeFlavours(flavours []string, n int, fallback string) []string {
	out := make([]string, 0, n)
	out = append(out, flavours...)
	base := fallback
	if len(out) > 0 {
		base = out[len(out)-1]
	}
	for len(out) < n {
		out = append(out, base)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}
