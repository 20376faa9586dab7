// Package ticket renders orders as operator-facing text tickets.
package ticket

import (
	"fmt"
	"strings"

	"github.com/kdos/desserts-relay/internal/order"
)

// Render produces the ticket for one order:
//
//	#42371  14:05  Collection  ETA 10m  NEW
//	  • Vanilla Milkshake × 1 • Regular • Whipped No • Pack Yes
//
// Completed orders drop the ETA. Times are rendered in UTC so output is
// stable regardless of the terminal's zone configuration.
func Render(o order.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%d  %s  %s", o.Number, o.PlacedAt.UTC().Format("15:04"), o.ServiceType)
	if !o.Done() {
		fmt.Fprintf(&b, "  ETA %dm", o.EtaMins)
	}
	fmt.Fprintf(&b, "  %s\n", o.Status)

	for _, item := range o.Items {
		b.WriteString(renderItem(item))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderList renders orders separated by blank lines.
func RenderList(orders []order.Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		parts = append(parts, Render(o))
	}
	return strings.Join(parts, "\n")
}

func renderItem(item order.LineItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  • %s × %d", item.Name, item.Qty)
	if item.Size != "" {
		fmt.Fprintf(&b, " • %s", item.Size)
	}
	if item.Scoops > 0 {
		fmt.Fprintf(&b, " • %d scoops", item.Scoops)
	}
	if len(item.Flavours) > 0 {
		fmt.Fprintf(&b, " • %s", strings.Join(item.Flavours, "/"))
	}
	if item.Whipped != nil {
		fmt.Fprintf(&b, " • Whipped %s", yesNo(*item.Whipped))
	}
	if item.Pack != nil {
		fmt.Fprintf(&b, " • Pack %s", yesNo(*item.Pack))
	}
	if item.Side != "" && item.Side != order.SideNone {
		fmt.Fprintf(&b, " • %s", item.Side)
	}
	if item.Notes != "" {
		fmt.Fprintf(&b, " — %s", item.Notes)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
