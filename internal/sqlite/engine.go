package sqlite

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	mattn "github.com/mattn/go-sqlite3"
	modernc "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Engine describes one database/sql SQLite driver: how to reach a database
// file through it and how to tell its transient lock errors apart from real
// faults. Swapping drivers means providing another Engine; the retry loop
// does not change.
type Engine interface {
	// DriverName is the name the driver registers with database/sql.
	DriverName() string

	// DSN returns the data source name for the database file at path with
	// the per-connection pragmas applied.
	DSN(path string, busyTimeout time.Duration) string

	// IsTransient reports whether err means the statement lost the write
	// lock to another connection and may succeed if simply run again.
	IsTransient(err error) bool
}

// EngineFor returns the Engine registered under the given driver name.
// An empty name selects the modernc engine.
func EngineFor(driver string) (Engine, error) {
	switch driver {
	case "", types.DriverModernc:
		return moderncEngine{}, nil
	case types.DriverMattn:
		return mattnEngine{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrDriverUnknown, driver)
	}
}

// moderncEngine is the pure-Go modernc.org/sqlite driver.
type moderncEngine struct{}

func (moderncEngine) DriverName() string { return types.DriverModernc }

func (moderncEngine) DSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

func (moderncEngine) IsTransient(err error) bool {
	var sqliteErr *modernc.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended result codes carry the primary code in the low byte.
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// mattnEngine is the cgo github.com/mattn/go-sqlite3 driver.
type mattnEngine struct{}

func (mattnEngine) DriverName() string { return types.DriverMattn }

func (mattnEngine) DSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	q.Set("_foreign_keys", "1")
	return "file:" + path + "?" + q.Encode()
}

func (mattnEngine) IsTransient(err error) bool {
	var sqliteErr mattn.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == mattn.ErrBusy || sqliteErr.Code == mattn.ErrLocked
}
