package types

import (
	"context"
	"errors"
)

// ItemStore provides the CRUD operations on items. Every operation borrows
// one pooled connection for its duration and absorbs transient lock
// contention from the storage engine.
type ItemStore interface {
	// Get retrieves the item with the given ID.
	// Returns ErrNotFound if no item exists with that ID.
	Get(ctx context.Context, id int64) (*Item, error)

	// GetAll returns every item in the engine's natural scan order.
	// Callers must not depend on that order.
	GetAll(ctx context.Context) ([]*Item, error)

	// Create inserts an item with an empty description and no date and
	// returns it with the ID assigned by the engine.
	Create(ctx context.Context) (*Item, error)

	// Update replaces description and date of the item with the given ID,
	// creating the item if it does not exist. item.ID is ignored in favour
	// of id. Returns the item as written.
	Update(ctx context.Context, id int64, item *Item) (*Item, error)

	// Delete removes the item with the given ID and returns its state
	// immediately before removal.
	// Returns ErrNotFound if no item exists with that ID.
	Delete(ctx context.Context, id int64) (*Item, error)
}

// Pantry is an ItemStore with an attach/detach lifecycle. Callers attach
// to a backend, use the store, and detach when done.
type Pantry interface {
	ItemStore

	// Attach opens the backend described by config. Creates the DataDir if
	// it does not exist. Returns ErrAlreadyAttached if already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, store operations return ErrDetached.
	Detach() error
}

// Lifecycle errors.
var (
	ErrDetached        = errors.New("pantry is detached")
	ErrAlreadyAttached = errors.New("pantry is already attached")
)

// Store operation errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidID   = errors.New("invalid item ID")
	ErrInvalidData = errors.New("invalid item data")
	ErrInvalidDate = errors.New("invalid date")

	// ErrBusy is returned only when a retry limit is configured and an
	// operation kept losing the write lock until the limit was reached.
	ErrBusy = errors.New("database is busy")

	// ErrPoolFault wraps failures to open the connection pool or to
	// acquire a connection from it.
	ErrPoolFault = errors.New("connection pool fault")
)
