package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdos/desserts-relay/internal/docstore"
	"github.com/kdos/desserts-relay/internal/feed"
	"github.com/kdos/desserts-relay/internal/ticket"
)

// snapshotWait bounds how long the one-shot listing waits for the initial
// snapshot. The store buffers it before Subscribe returns, so in practice
// the receive is immediate.
const snapshotWait = 5 * time.Second

// NewOrdersCommand creates the orders command: render the current board
// from the first snapshot and exit.
func NewOrdersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List active and completed orders",
		Args:  cobra.NoArgs,
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

			if _, err := store.EnsureIdentity(cmd.Context()); err != nil {
				return err
			}
			sub, err := store.Subscribe(cmd.Context(), cfg.Collection, "placedAt", docstore.Desc)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			board := feed.New()
			select {
			case snap := <-sub.Snapshots():
				if err := board.Apply(snap); err != nil {
					return err
				}
			case <-time.After(snapshotWait):
				return fmt.Errorf("orders: no snapshot within %s", snapshotWait)
			}

			out := cmd.OutOrStdout()
			active, completed := board.Active(), board.Completed()
			fmt.Fprintf(out, "Active (%d)\n\n", len(active))
			if len(active) > 0 {
				fmt.Fprint(out, ticket.RenderList(active))
			}
			fmt.Fprintf(out, "\nCompleted (%d)\n\n", len(completed))
			if len(completed) > 0 {
				fmt.Fprint(out, ticket.RenderList(completed))
			}
			return nil
		},
	}
}
