package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

const itemColumns = "id, description, date"

// Get retrieves an item by ID.
// Returns ErrInvalidID if id is not positive, ErrNotFound if not found.
func (b *Backend) Get(ctx context.Context, id int64) (*types.Item, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var item *types.Item
	err := b.withConn(ctx, "get", func(ctx context.Context, conn *sql.Conn) error {
		var err error
		item, err = scanItem(conn.QueryRowContext(ctx,
			"SELECT "+itemColumns+" FROM items WHERE id = ?", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetAll returns every item in rowid order. An empty table yields an empty,
// non-nil slice.
func (b *Backend) GetAll(ctx context.Context) ([]*types.Item, error) {
	var items []*types.Item
	err := b.withConn(ctx, "get_all", func(ctx context.Context, conn *sql.Conn) error {
		var err error
		items, err = queryItems(ctx, conn, "SELECT "+itemColumns+" FROM items")
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts an item with an empty description and no date. The engine
// assigns the ID.
func (b *Backend) Create(ctx context.Context) (*types.Item, error) {
	var item *types.Item
	err := b.withConn(ctx, "create", func(ctx context.Context, conn *sql.Conn) error {
		var err error
		item, err = scanItem(conn.QueryRowContext(ctx,
			"INSERT INTO items DEFAULT VALUES RETURNING "+itemColumns))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update writes description and date for id in one statement, inserting the
// row when it does not exist. The row is never absent to concurrent readers
// while it is being replaced.
// Returns ErrInvalidID if id is not positive, ErrInvalidData if item is nil
// or carries an impossible date.
func (b *Backend) Update(ctx context.Context, id int64, item *types.Item) (*types.Item, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	if item == nil {
		return nil, types.ErrInvalidData
	}
	if item.Date != nil && !item.Date.Valid() {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidData, types.ErrInvalidDate)
	}

	var out *types.Item
	err := b.withConn(ctx, "update", func(ctx context.Context, conn *sql.Conn) error {
		var err error
		out, err = upsertItem(ctx, conn, id, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an item and returns its state immediately before removal.
// Returns ErrInvalidID if id is not positive, ErrNotFound if nothing was
// deleted.
func (b *Backend) Delete(ctx context.Context, id int64) (*types.Item, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var item *types.Item
	err := b.withConn(ctx, "delete", func(ctx context.Context, conn *sql.Conn) error {
		var err error
		item, err = scanItem(conn.QueryRowContext(ctx,
			"DELETE FROM items WHERE id = ? RETURNING "+itemColumns, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// execQuerier is satisfied by *sql.Conn and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertItem(ctx context.Context, q execQuerier, id int64, item *types.Item) (*types.Item, error) {
	return scanItem(q.QueryRowContext(ctx, `
		INSERT INTO items (id, description, date)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			date = excluded.date
		RETURNING `+itemColumns,
		id, item.Description, dateValue(item.Date)))
}

func queryItems(ctx context.Context, q execQuerier, query string, args ...any) ([]*types.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	items := []*types.Item{}
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	return items, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*types.Item, error) {
	item, err := scanItemRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	return item, err
}

func scanItemRow(s scanner) (*types.Item, error) {
	var item types.Item
	var date nullDate
	if err := s.Scan(&item.ID, &item.Description, &date); err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	if date.Valid {
		d := date.Date
		item.Date = &d
	}
	return &item, nil
}

// dateValue converts an optional date to its column value.
func dateValue(d *types.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// nullDate scans a nullable date column. Drivers hand back the stored text,
// or a time.Time when they recognise a date-like value.
type nullDate struct {
	Date  types.Date
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullDate) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		n.Date, n.Valid = types.Date{}, false
		return nil
	case time.Time:
		n.Date, n.Valid = types.DateOf(v.UTC()), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported date column type %T", value)
	}
}

func (n *nullDate) parse(s string) error {
	d, err := types.ParseDate(s)
	if err != nil {
		return err
	}
	n.Date, n.Valid = d, true
	return nil
}
