package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdos/desserts-relay/internal/order"
)

// NewAdvanceCommand creates the advance command: request a status for an
// order, as the fulfillment terminal's Start / Mark Ready / Done buttons
// do.
func NewAdvanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <order-id> <status>",
		Short: "Advance an order to IN_PROGRESS, READY or DONE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := order.NewEngine(store, cfg.Collection, order.WithLogger(log))
			if err := engine.Advance(cmd.Context(), args[0], order.Status(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}
