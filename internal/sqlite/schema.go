package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// currentSchemaVersion is recorded in PRAGMA user_version once every
// migration below has been applied.
//
//	1 - items table
//	2 - index on items(date)
const currentSchemaVersion = 2

// Dates are stored as YYYY-MM-DD text, SQLite's native date encoding.
// AUTOINCREMENT keeps the engine from reusing the id of a deleted row.
const createItems = `CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    description TEXT NOT NULL DEFAULT '',
    date TEXT
);`

const idxItemsDate = `CREATE INDEX IF NOT EXISTS idx_items_date ON items(date);`

// migrations lists the statements that take the schema from version i to
// i+1, in order.
var migrations = [][]string{
	{createItems},
	{idxItemsDate},
}

// migrate brings the schema up to currentSchemaVersion inside one
// immediate transaction on conn. Running it against an up-to-date database
// is a no-op.
func migrate(ctx context.Context, conn *sql.Conn) (err error) {
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	version, err := schemaVersion(ctx, conn)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version; v < currentSchemaVersion; v++ {
		for _, stmt := range migrations[v] {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrating to v%d: %w", v+1, err)
			}
		}
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// schemaVersion reads PRAGMA user_version.
func schemaVersion(ctx context.Context, conn *sql.Conn) (int, error) {
	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return version, nil
}
