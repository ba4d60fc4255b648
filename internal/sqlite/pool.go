package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Pool is a bounded set of connections to one SQLite database file.
// Callers Acquire a connection, run one operation, and Close it to hand it
// back, or use With which does the release on every exit path.
//
// Pool is safe for concurrent use. Individual connections are not.
type Pool struct {
	db     *sql.DB
	engine Engine
	path   string
	size   int
	logger *slog.Logger
}

// OpenPool opens a pool of at most size connections to the database file at
// path and verifies the file can be opened. Failures wrap types.ErrPoolFault
// and are meant to be fatal at startup.
func OpenPool(engine Engine, path string, size int, busyTimeout time.Duration, logger *slog.Logger) (*Pool, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", types.ErrPoolFault)
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: pool size %d, want >= 1", types.ErrPoolFault, size)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open(engine.DriverName(), engine.DSN(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", types.ErrPoolFault, path, err)
	}
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to %s: %w", types.ErrPoolFault, path, err)
	}

	logger.Info("sqlite pool opened",
		"path", path,
		"driver", engine.DriverName(),
		"pool_size", size,
	)

	return &Pool{
		db:     db,
		engine: engine,
		path:   path,
		size:   size,
		logger: logger,
	}, nil
}

// Acquire borrows a connection from the pool. Blocks until a connection is
// free or ctx is done. The caller must Close the connection to return it.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring connection: %w", types.ErrPoolFault, err)
	}
	return conn, nil
}

// With acquires a connection, runs fn on it, and returns the connection to
// the pool whether fn succeeds, fails, or panics.
func (p *Pool) With(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Size returns the maximum number of open connections.
func (p *Pool) Size() int {
	return p.size
}

// Path returns the database file path.
func (p *Pool) Path() string {
	return p.path
}

// Engine returns the engine the pool was opened with.
func (p *Pool) Engine() Engine {
	return p.engine
}

// InUse returns the number of connections currently borrowed.
func (p *Pool) InUse() int {
	return p.db.Stats().InUse
}

// Close closes all connections. Borrowed connections are closed as they are
// returned.
func (p *Pool) Close() error {
	if err := p.db.Close(); err != nil {
		p.logger.Error("sqlite pool close error",
			"path", p.path,
			"error", err,
		)
		return fmt.Errorf("closing pool %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}
