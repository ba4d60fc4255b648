package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/pantry"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pantry version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": pantry.Version,
					"module":  pantry.ModulePath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pantry v%s\nmodule: %s\n", pantry.Version, pantry.ModulePath)
			return nil
		},
	}
}
