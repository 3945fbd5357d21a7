package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create things table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT)")
				return err
			},
		},
		{
			Version:     2,
			Description: "index things by name",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE INDEX idx_things_name ON things(name)")
				return err
			},
		},
	}
}

func TestMigrateAppliesInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Migrate(ctx, "test", testMigrations()))

	_, err := s.DB().ExecContext(ctx, "INSERT INTO things (id, name) VALUES ('a', 'x')")
	assert.NoError(t, err, "migrated table should be usable")

	var count int
	err = s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE component = 'test'",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Migrate(ctx, "test", testMigrations()))
	// A second run must skip already-applied versions; the CREATE TABLE
	// would otherwise fail.
	require.NoError(t, s.Migrate(ctx, "test", testMigrations()))
}

func TestMigrateTracksComponentsSeparately(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Migrate(ctx, "alpha", testMigrations()[:1]))

	other := []Migration{{
		Version:     1,
		Description: "create other table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE other (id TEXT PRIMARY KEY)")
			return err
		},
	}}
	require.NoError(t, s.Migrate(ctx, "beta", other))
}

func TestMigrateFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := []Migration{{
		Version:     1,
		Description: "broken",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE broken (id TEXT)")
			if err != nil {
				return err
			}
			return errors.New("halfway failure")
		},
	}}

	require.Error(t, s.Migrate(ctx, "bad", bad))

	// Neither the table nor the tracking row survives the rollback.
	_, err := s.DB().ExecContext(ctx, "INSERT INTO broken (id) VALUES ('x')")
	assert.Error(t, err, "table from a rolled-back migration should not exist")

	var count int
	err = s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE component = 'bad'",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.DB().ExecContext(ctx, "CREATE TABLE t (id TEXT)")
	require.NoError(t, err)

	wantErr := errors.New("abort")
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (id) VALUES ('x')"); err != nil {
			return err
		}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 0, count, "rows must not survive the rollback")
}

func TestCheckVersionFirstRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CheckVersion(ctx, "1.2.0"))

	var stored string
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT app_version FROM _schema_meta WHERE id = 1",
	).Scan(&stored))
	assert.Equal(t, "1.2.0", stored)
}

func TestCheckVersionUpgradeUpdatesStored(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CheckVersion(ctx, "1.0.0"))
	require.NoError(t, s.CheckVersion(ctx, "1.1.0"))

	var stored string
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT app_version FROM _schema_meta WHERE id = 1",
	).Scan(&stored))
	assert.Equal(t, "1.1.0", stored)
}

func TestCheckVersionRejectsOlderBinary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CheckVersion(ctx, "2.0.0"))

	err := s.CheckVersion(ctx, "1.9.0")
	assert.ErrorIs(t, err, ErrNewerSchema)
}

func TestCheckVersionDevBypasses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CheckVersion(ctx, "9.0.0"))
	assert.NoError(t, s.CheckVersion(ctx, "dev"), "dev binary must bypass the check")
	// And back up from dev to any release.
	assert.NoError(t, s.CheckVersion(ctx, "0.1.0"))
}
