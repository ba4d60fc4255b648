package types

import (
	"errors"
	"path/filepath"
	"time"
)

// Config holds backend selection and parameters for Pantry.Attach.
type Config struct {
	Backend      string       `json:"backend" yaml:"backend"`
	DataDir      string       `json:"data_dir" yaml:"data_dir"`
	SQLiteConfig SQLiteConfig `json:"sqlite" yaml:"sqlite"`
}

// SQLiteConfig holds the SQLite-specific settings. Zero values select the
// defaults returned by the getters.
type SQLiteConfig struct {
	// Driver selects the engine profile: DriverModernc (default) or
	// DriverMattn.
	Driver string `json:"driver" yaml:"driver"`

	// Path is the database file. Relative paths are joined to DataDir.
	// Empty selects DefaultDatabaseFile inside DataDir.
	Path string `json:"path" yaml:"path"`

	// PoolSize bounds the number of open connections.
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// BusyTimeout is the engine-side wait before reporting a lock. Zero
	// leaves contention entirely to the store's retry loop.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	// MaxAttempts caps attempts per operation under contention. Zero
	// retries without limit.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Backoff is the base delay between contended attempts. Zero retries
	// immediately.
	Backoff time.Duration `json:"backoff" yaml:"backoff"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// SQLite driver names, matching the database/sql driver registrations.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// Defaults applied by the SQLiteConfig getters.
const (
	DefaultDatabaseFile = "pantry.db"
	DefaultPoolSize     = 4
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrDriverUnknown   = errors.New("unknown sqlite driver")
	ErrPoolSizeInvalid = errors.New("pool size must not be negative")
	ErrRetryInvalid    = errors.New("retry settings must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var knownDrivers = map[string]bool{
	DriverModernc: true,
	DriverMattn:   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return c.SQLiteConfig.Validate()
}

// Validate checks the SQLite settings.
func (s SQLiteConfig) Validate() error {
	if s.Driver != "" && !knownDrivers[s.Driver] {
		return ErrDriverUnknown
	}
	if s.PoolSize < 0 {
		return ErrPoolSizeInvalid
	}
	if s.MaxAttempts < 0 || s.Backoff < 0 || s.BusyTimeout < 0 {
		return ErrRetryInvalid
	}
	return nil
}

// GetDriver returns the configured driver or DriverModernc.
func (s SQLiteConfig) GetDriver() string {
	if s.Driver == "" {
		return DriverModernc
	}
	return s.Driver
}

// GetPoolSize returns the configured pool size or DefaultPoolSize.
func (s SQLiteConfig) GetPoolSize() int {
	if s.PoolSize <= 0 {
		return DefaultPoolSize
	}
	return s.PoolSize
}

// GetPath returns the configured database path or DefaultDatabaseFile.
func (s SQLiteConfig) GetPath() string {
	if s.Path == "" {
		return DefaultDatabaseFile
	}
	return s.Path
}

// DatabasePath returns the database file location: SQLiteConfig's path,
// joined to DataDir unless it is absolute.
func (c Config) DatabasePath() string {
	p := c.SQLiteConfig.GetPath()
	if filepath.IsAbs(p) {
		return p
	}
	dataDir := c.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, p)
}
