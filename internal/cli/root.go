// Package cli wires the desserts-relay command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kdos/desserts-relay/internal/config"
	"github.com/kdos/desserts-relay/internal/docstore"
	"github.com/kdos/desserts-relay/internal/logging"
	"github.com/kdos/desserts-relay/internal/menu"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the desserts-relay CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "desserts-relay",
		Short:         "Order relay between the kebab and desserts terminals",
		Long:          "Relays food orders between two point-of-sale terminals over a shared realtime document store, with an offline-first cache for the terminal UI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewAdvanceCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewMenuCommand(opts))

	return cmd
}

// setup loads configuration and constructs the logger shared by every
// command.
func setup(opts *RootOptions) (config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(opts.Verbose)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// openStore opens the document store configured by cfg.
func openStore(cfg config.Config, log *zap.SugaredLogger) (*docstore.Store, error) {
	store, err := docstore.Open(cfg.DBPath, docstore.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// loadCatalog loads the configured menu, falling back to the embedded
// catalog when no path is set.
func loadCatalog(cfg config.Config) (*menu.Catalog, error) {
	if cfg.MenuPath != "" {
		return menu.Load(cfg.MenuPath)
	}
	return menu.LoadDefault()
}
