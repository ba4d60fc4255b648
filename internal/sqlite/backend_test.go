// Tests for the SQLite backend lifecycle.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// setupBackend creates an attached Backend on a fresh data directory. mods
// adjust the SQLite settings before Attach. The backend is detached on test
// cleanup.
func setupBackend(t *testing.T, mods ...func(*types.SQLiteConfig)) *Backend {
	t.Helper()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	for _, mod := range mods {
		mod(&config.SQLiteConfig)
	}
	b := NewBackend()
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	require.NoError(t, b.Attach(config))

	// Verify database file created
	_, err := os.Stat(filepath.Join(tmpDir, types.DefaultDatabaseFile))
	assert.NoError(t, err, "pantry.db not created")

	// Verify double attach fails
	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach())
}

func TestBackend_AttachCreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}))
	defer b.Detach()

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBackend_AttachAbsolutePath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "elsewhere.db")

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:      types.BackendSQLite,
		DataDir:      t.TempDir(),
		SQLiteConfig: types.SQLiteConfig{Path: dbPath},
	}))
	defer b.Detach()

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{
			name:    "empty backend",
			config:  types.Config{DataDir: t.TempDir()},
			wantErr: types.ErrBackendEmpty,
		},
		{
			name:    "unknown backend",
			config:  types.Config{Backend: "postgres", DataDir: t.TempDir()},
			wantErr: types.ErrBackendUnknown,
		},
		{
			name: "unknown driver",
			config: types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(),
				SQLiteConfig: types.SQLiteConfig{Driver: "duckdb"}},
			wantErr: types.ErrDriverUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend()
			assert.ErrorIs(t, b.Attach(tt.config), tt.wantErr)
			_, err := b.Get(context.Background(), 1)
			assert.ErrorIs(t, err, types.ErrDetached)
		})
	}
}

func TestBackend_AttachCorruptFileIsPoolFault(t *testing.T) {
	dataDir := t.TempDir()
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = 0xAB
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, types.DefaultDatabaseFile), garbage, 0o644))

	b := NewBackend()
	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPoolFault)
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())

	// Verify idempotent
	assert.NoError(t, b.Detach())

	// Verify operations fail after detach
	ctx := context.Background()
	_, err := b.Create(ctx)
	assert.ErrorIs(t, err, types.ErrDetached)
	_, err = b.GetAll(ctx)
	assert.ErrorIs(t, err, types.ErrDetached)
	_, err = b.Delete(ctx, 1)
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, b.Ping(ctx), types.ErrDetached)
	assert.Equal(t, Stats{}, b.Stats())
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	ctx := context.Background()
	config := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	created, err := b.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	got, err := b.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestBackend_SchemaVersion(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	err := b.pool.With(ctx, func(conn *sql.Conn) error {
		version, err := schemaVersion(ctx, conn)
		if err != nil {
			return err
		}
		assert.Equal(t, currentSchemaVersion, version)

		// Running the migration again is a no-op.
		return migrate(ctx, conn)
	})
	require.NoError(t, err)
}

func TestBackend_NewerSchemaIsRejected(t *testing.T) {
	config := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
	b := NewBackend()
	require.NoError(t, b.Attach(config))

	ctx := context.Background()
	err := b.pool.With(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "PRAGMA user_version = 99")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	err = b.Attach(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestBackend_PingAndStats(t *testing.T) {
	b := setupBackend(t, func(s *types.SQLiteConfig) { s.PoolSize = 3 })

	require.NoError(t, b.Ping(context.Background()))

	stats := b.Stats()
	assert.Equal(t, 3, stats.PoolSize)
	assert.Equal(t, 0, stats.InUse)
	assert.Zero(t, stats.Retries)
	assert.Zero(t, stats.GiveUps)
}
