package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/treesync/pkg/treesync"
)

const modulePath = "github.com/mesh-intelligence/treesync"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the treesync version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "treesync v%s\nmodule: %s\n", treesync.Version, modulePath)
			return nil
		},
	}
}
