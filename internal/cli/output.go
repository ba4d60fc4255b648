package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return systemError(fmt.Errorf("encoding output: %w", err))
	}
	return nil
}

// writeItems prints items as JSON, or one tab-separated line per item.
func (a *app) writeItems(w io.Writer, items ...*types.Item) error {
	if a.flags.jsonMode {
		if len(items) == 1 {
			return writeJSON(w, items[0])
		}
		return writeJSON(w, items)
	}
	for _, item := range items {
		date := "-"
		if item.Date != nil {
			date = item.Date.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", item.ID, date, item.Description)
	}
	return nil
}

// parseID parses a positive item id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("%w: %q", types.ErrInvalidID, s))
	}
	return id, nil
}

// Argument validators that report misuse as a user error.

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return userError(err)
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}
