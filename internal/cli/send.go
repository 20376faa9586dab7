package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kdos/desserts-relay/internal/menu"
	"github.com/kdos/desserts-relay/internal/order"
	"github.com/kdos/desserts-relay/internal/ticket"
)

// cartFile is the YAML shape accepted by `send --cart`.
type cartFile struct {
	Items []cartItem `yaml:"items"`
}

type cartItem struct {
	Kind string `yaml:"kind"`

	// milkshake
	Flavour string `yaml:"flavour,omitempty"`
	Gourmet bool   `yaml:"gourmet,omitempty"`
	Size    string `yaml:"size,omitempty"`
	Whipped bool   `yaml:"whipped,omitempty"`
	Pack    bool   `yaml:"pack,omitempty"`

	// icecream
	Scoops   int      `yaml:"scoops,omitempty"`
	Flavours []string `yaml:"flavours,omitempty"`

	// cake
	Name string `yaml:"name,omitempty"`
	Side string `yaml:"side,omitempty"`

	Qty int `yaml:"qty"`
}

// NewSendCommand creates the send command: build a cart from a YAML file,
// validate every selection against the menu, and send the order.
func NewSendCommand(opts *RootOptions) *cobra.Command {
	var (
		cartPath string
		service  string
		eta      int
		note     string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an order from a cart file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			cart, err := buildCart(cartPath, catalog)
			if err != nil {
				return err
			}
			if !catalog.ServiceType(service) {
				return fmt.Errorf("send: unknown service type %q", service)
			}
			if !catalog.ReadyOption(eta) {
				return fmt.Errorf("send: ETA %dm is not an offered option", eta)
			}

			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := order.NewEngine(store, cfg.Collection, order.WithLogger(log))
			o, err := engine.CreateOrder(cmd.Context(), cart, order.ServiceType(service), eta, note)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), ticket.Render(o))
			return nil
		},
	}

	cmd.Flags().StringVar(&cartPath, "cart", "", "path to YAML cart file (required)")
	cmd.Flags().StringVar(&service, "service", "", "service type: Waiting, Delivery or Collection (required)")
	cmd.Flags().IntVar(&eta, "eta", 10, "ready-in estimate, minutes")
	cmd.Flags().StringVar(&note, "note", "", "order note, applied to every item")
	cmd.MarkFlagRequired("cart")
	cmd.MarkFlagRequired("service")

	return cmd
}

// buildCart parses the cart file and validates each selection against the
// catalog before adding it.
func buildCart(path string, catalog *menu.Catalog) (*order.Cart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	var cf cartFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse cart %s: %w", path, err)
	}

	cart := &order.Cart{}
	for i, item := range cf.Items {
		switch order.Kind(item.Kind) {
		case order.KindMilkshake:
			ok, gourmet := catalog.MilkshakeFlavour(item.Flavour)
			if !ok {
				return nil, fmt.Errorf("cart item %d: unknown milkshake flavour %q", i, item.Flavour)
			}
			size := item.Size
			if size == "" {
				size = order.SizeRegular
			}
			cart.AddMilkshake(order.MilkshakeSelection{
				Flavour: item.Flavour,
				Gourmet: gourmet,
				Size:    size,
				Qty:     item.Qty,
				Whipped: item.Whipped,
				Pack:    item.Pack,
			})
		case order.KindIceCream:
			for _, fl := range item.Flavours {
				if !catalog.IceCreamFlavour(fl) {
					return nil, fmt.Errorf("cart item %d: unknown ice cream flavour %q", i, fl)
				}
			}
			cart.AddIceCream(order.IceCreamSelection{
				Scoops:   item.Scoops,
				Flavours: item.Flavours,
				Qty:      item.Qty,
			})
		case order.KindCake:
			if !catalog.Cake(item.Name) {
				return nil, fmt.Errorf("cart item %d: unknown cake %q", i, item.Name)
			}
			side := item.Side
			if side == "" {
				side = order.SideNone
			}
			if !catalog.CakeSide(side) {
				return nil, fmt.Errorf("cart item %d: unknown cake side %q", i, side)
			}
			cart.AddCake(order.CakeSelection{
				Name: item.Name,
				Side: side,
				Qty:  item.Qty,
			})
		default:
			return nil, fmt.Errorf("cart item %d: unknown kind %q", i, item.Kind)
		}
	}
	return cart, nil
}
