package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize pantry storage",
		Long:  "Create the configuration and data directories, a default config.yaml, and the database schema.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.openBackend()
			if err != nil {
				return err
			}
			if err := backend.Detach(); err != nil {
				return systemError(fmt.Errorf("detaching backend: %w", err))
			}

			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return systemError(err)
			}
			cfg := a.settings.backendConfig()
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"config_file": paths.ConfigFile(configDir),
					"database":    cfg.DatabasePath(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pantry initialized\nconfig:   %s\ndatabase: %s\n",
				paths.ConfigFile(configDir), cfg.DatabasePath())
			return nil
		},
	}
}
