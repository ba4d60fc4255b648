// This file implements JSONL import into the items table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Import upserts every item read from r, keeping each item's id. Loading is
// transactional: all items are written or none are. Malformed lines are
// skipped. Returns the number of items written.
func (b *Backend) Import(ctx context.Context, r io.Reader) (int, error) {
	items, err := readItemsJSONL(r)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if item.Date != nil && !item.Date.Valid() {
			return 0, fmt.Errorf("item %d: %w", item.ID, types.ErrInvalidDate)
		}
	}
	if len(items) == 0 {
		return 0, nil
	}

	err = b.withConn(ctx, "import", func(ctx context.Context, conn *sql.Conn) error {
		return loadItems(ctx, conn, items)
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// ImportFile imports the JSONL file at path. A path ending in .zst is read
// through a zstd decoder.
func (b *Backend) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, zstdSuffix) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer dec.Close()
		return b.Import(ctx, dec)
	}
	return b.Import(ctx, f)
}

// loadItems upserts items inside one immediate transaction on conn. On any
// error the transaction is rolled back so the caller may run it again.
func loadItems(ctx context.Context, conn *sql.Conn, items []*types.Item) (err error) {
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	for _, item := range items {
		if _, err := upsertItem(ctx, conn, item.ID, item); err != nil {
			return fmt.Errorf("importing item %d: %w", item.ID, err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing import transaction: %w", err)
	}
	return nil
}
