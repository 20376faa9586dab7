package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdos/desserts-relay/internal/cleanup"
)

// NewCleanupCommand creates the cleanup command: run one cleanup pass
// immediately, outside the daily trigger window.
func NewCleanupCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete previous-day completed orders now",
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

			sched := cleanup.New(store, cfg.Collection, cleanup.WithLogger(log))
			if err := sched.Force(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleanup pass complete")
			return nil
		},
	}
}
