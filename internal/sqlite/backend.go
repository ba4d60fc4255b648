// Package sqlite implements the SQLite storage backend for Pantry.
//
// SQLite admits one writer at a time. A write that arrives while another
// connection holds the write lock fails at once with SQLITE_BUSY (the pool
// sets busy_timeout to zero unless configured otherwise). The backend
// borrows one pooled connection per operation and re-runs the operation on
// that connection until it stops failing with a transient lock error, so
// callers never see contention as a failure.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Backend implements the Pantry interface on a pooled SQLite database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	pool     *Pool
	retry    *retrier
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used by the backend and its pool.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Stats reports contention counters and pool usage.
type Stats struct {
	Retries  uint64 // transient lock errors absorbed by retrying
	GiveUps  uint64 // operations that hit the configured attempt limit
	PoolSize int
	InUse    int
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, opens the connection pool and
// migrates the schema.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	// Create DataDir if needed
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := config.DatabasePath()

	engine, err := EngineFor(config.SQLiteConfig.GetDriver())
	if err != nil {
		return err
	}

	pool, err := OpenPool(engine, dbPath, config.SQLiteConfig.GetPoolSize(),
		config.SQLiteConfig.BusyTimeout, b.logger)
	if err != nil {
		return err
	}

	retry := newRetrier(engine.IsTransient, config.SQLiteConfig.MaxAttempts,
		config.SQLiteConfig.Backoff, b.logger)

	ctx := context.Background()
	err = pool.With(ctx, func(conn *sql.Conn) error {
		return retry.do("migrate", func() error {
			return migrate(ctx, conn)
		})
	})
	if err != nil {
		pool.Close()
		return fmt.Errorf("migrating schema: %w", err)
	}

	b.config = config
	b.pool = pool
	b.retry = retry
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend.
// Waits for in-flight operations, then closes the pool. After Detach, all
// operations return ErrDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	b.attached = false
	pool := b.pool
	b.pool = nil
	if err := pool.Close(); err != nil {
		return err
	}
	return nil
}

// Stats returns the contention counters and pool usage. Counters reset on
// Attach.
func (b *Backend) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return Stats{}
	}
	return Stats{
		Retries:  b.retry.retries.Load(),
		GiveUps:  b.retry.giveUps.Load(),
		PoolSize: b.pool.Size(),
		InUse:    b.pool.InUse(),
	}
}

// Ping checks that a connection can be borrowed and reaches the database.
func (b *Backend) Ping(ctx context.Context) error {
	return b.withConn(ctx, "ping", func(ctx context.Context, conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// withConn borrows a connection for one operation and runs fn under the
// retry loop. ctx bounds only the wait for a connection: once one is held
// the operation runs to completion.
func (b *Backend) withConn(ctx context.Context, op string, fn func(ctx context.Context, conn *sql.Conn) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrDetached
	}

	return b.pool.With(ctx, func(conn *sql.Conn) error {
		opCtx := context.WithoutCancel(ctx)
		return b.retry.do(op, func() error {
			return fn(opCtx, conn)
		})
	})
}
