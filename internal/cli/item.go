package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newItemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Read and modify items directly in the database",
	}
	cmd.AddCommand(
		newItemGetCmd(a),
		newItemListCmd(a),
		newItemCreateCmd(a),
		newItemUpdateCmd(a),
		newItemDeleteCmd(a),
	)
	return cmd
}

// withBackend attaches a backend for the duration of fn.
func (a *app) withBackend(fn func(b *sqlite.Backend) error) error {
	backend, err := a.openBackend()
	if err != nil {
		return err
	}
	defer backend.Detach()
	return fn(backend)
}

func newItemGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one item",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(func(b *sqlite.Backend) error {
				item, err := b.Get(cmd.Context(), id)
				if err != nil {
					return storeError(err)
				}
				return a.writeItems(cmd.OutOrStdout(), item)
			})
		},
	}
}

func newItemListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every item",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				items, err := b.GetAll(cmd.Context())
				if err != nil {
					return storeError(err)
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				return a.writeItems(cmd.OutOrStdout(), items...)
			})
		},
	}
}

func newItemCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create an empty item and print it",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				item, err := b.Create(cmd.Context())
				if err != nil {
					return storeError(err)
				}
				return a.writeItems(cmd.OutOrStdout(), item)
			})
		},
	}
}

func newItemUpdateCmd(a *app) *cobra.Command {
	var (
		description string
		date        string
		clearDate   bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Set fields of an item, creating it if absent",
		Long: "Update writes the item with the given id. Fields whose flags are not\n" +
			"given keep their current value; a missing item starts out empty.\n\n" +
			"The current value is read and the merged item written in two separate\n" +
			"steps, so concurrent updates of the same id are last-writer-wins: a\n" +
			"field changed by another writer in between may be overwritten.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var newDate *types.Date
			if cmd.Flags().Changed("date") {
				d, err := types.ParseDate(date)
				if err != nil {
					return userError(err)
				}
				newDate = &d
			}

			return a.withBackend(func(b *sqlite.Backend) error {
				item, err := b.Get(cmd.Context(), id)
				switch {
				case errors.Is(err, types.ErrNotFound):
					item = &types.Item{ID: id}
				case err != nil:
					return storeError(err)
				}

				if cmd.Flags().Changed("description") {
					item.Description = description
				}
				if newDate != nil {
					item.Date = newDate
				}
				if clearDate {
					item.Date = nil
				}

				updated, err := b.Update(cmd.Context(), id, item)
				if err != nil {
					return storeError(err)
				}
				return a.writeItems(cmd.OutOrStdout(), updated)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "item description")
	cmd.Flags().StringVar(&date, "date", "", "item date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDate, "clear-date", false, "remove the item's date")
	cmd.MarkFlagsMutuallyExclusive("date", "clear-date")
	return cmd
}

func newItemDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item and print what was removed",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(func(b *sqlite.Backend) error {
				item, err := b.Delete(cmd.Context(), id)
				if err != nil {
					return storeError(err)
				}
				return a.writeItems(cmd.OutOrStdout(), item)
			})
		},
	}
}
