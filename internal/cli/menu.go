package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewMenuCommand creates the menu command: print the active catalog.
func NewMenuCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Print the active dessert catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(opts)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSection(out, "Milkshakes", catalog.MilkshakeRegular)
			printSection(out, "Gourmet Milkshakes", catalog.MilkshakeGourmet)
			printSection(out, "Ice Cream", catalog.IceCreamFlavours)
			printSection(out, "Cakes", catalog.Cakes)
			printSection(out, "Cake Sides", catalog.CakeSides)

			etas := make([]string, len(catalog.ReadyOptions))
			for i, m := range catalog.ReadyOptions {
				etas[i] = fmt.Sprintf("%dm", m)
			}
			printSection(out, "Ready In", etas)
			printSection(out, "Service", catalog.ServiceTypes)
			return nil
		},
	}
}

func printSection(w io.Writer, title string, entries []string) {
	fmt.Fprintf(w, "%s:\n  %s\n", title, strings.Join(entries, ", "))
}
