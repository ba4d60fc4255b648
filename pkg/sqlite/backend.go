// Package sqlite provides the public API for the SQLite Pantry backend.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
// A nil logger discards log output.
//
// Example:
//
//	backend := sqlite.NewBackend(nil)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pantry-db",
//	})
//	defer backend.Detach()
//
//	item, err := backend.Create(ctx)
func NewBackend(logger *slog.Logger) types.Pantry {
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
