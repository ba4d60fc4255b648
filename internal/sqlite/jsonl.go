// This file provides JSONL export of the items table with atomic file
// persistence.
package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// zstdSuffix marks export files that are zstd-compressed.
const zstdSuffix = ".zst"

// Export writes every item to w as one JSON object per line, in id order.
// Returns the number of items written.
func (b *Backend) Export(ctx context.Context, w io.Writer) (int, error) {
	var items []*types.Item
	err := b.withConn(ctx, "export", func(ctx context.Context, conn *sql.Conn) error {
		var err error
		items, err = queryItems(ctx, conn, "SELECT "+itemColumns+" FROM items ORDER BY id")
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := writeItemsJSONL(w, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// ExportFile writes the export to path atomically. A path ending in .zst is
// zstd-compressed.
func (b *Backend) ExportFile(ctx context.Context, path string) (int, error) {
	var n int
	err := writeFileAtomic(path, func(w io.Writer) error {
		if strings.HasSuffix(path, zstdSuffix) {
			enc, err := zstd.NewWriter(w)
			if err != nil {
				return fmt.Errorf("creating zstd writer: %w", err)
			}
			n, err = b.Export(ctx, enc)
			if err != nil {
				enc.Close()
				return err
			}
			return enc.Close()
		}
		var err error
		n, err = b.Export(ctx, w)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// writeItemsJSONL encodes items one per line.
func writeItemsJSONL(w io.Writer, items []*types.Item) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("writing item %d: %w", item.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	return nil
}

// readItemsJSONL decodes one item per line. Blank and malformed lines, and
// lines without a positive id, are skipped.
func readItemsJSONL(r io.Reader) ([]*types.Item, error) {
	var items []*types.Item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item types.Item
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		if item.ID <= 0 {
			continue
		}
		items = append(items, &item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning items: %w", err)
	}
	return items, nil
}

// writeFileAtomic writes path using the temp-file, fsync, rename pattern so
// readers never observe a partial file.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
