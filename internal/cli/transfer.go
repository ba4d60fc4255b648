package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// errNoItems reports an import file without a single usable line.
var errNoItems = errors.New("no items found")

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every item to a JSONL file (.zst compresses)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				n, err := b.ExportFile(cmd.Context(), args[0])
				if err != nil {
					return systemError(fmt.Errorf("exporting: %w", err))
				}
				return a.writeCount(cmd, "exported", n, args[0])
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert items from a JSONL file (.zst decompresses)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				n, err := b.ImportFile(cmd.Context(), args[0])
				switch {
				case errors.Is(err, types.ErrInvalidDate), errors.Is(err, os.ErrNotExist):
					return userError(fmt.Errorf("importing: %w", err))
				case err != nil:
					return systemError(fmt.Errorf("importing: %w", err))
				case n == 0:
					return userError(fmt.Errorf("importing %s: %w", args[0], errNoItems))
				}
				return a.writeCount(cmd, "imported", n, args[0])
			})
		},
	}
}

func (a *app) writeCount(cmd *cobra.Command, verb string, n int, file string) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), map[string]any{verb: n, "file": file})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d items (%s)\n", verb, n, file)
	return nil
}
