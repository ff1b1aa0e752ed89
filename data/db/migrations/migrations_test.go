package migrations

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "recordbin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestUp_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, Up(ctx, db, "sqlite"))

	for _, table := range []string{
		"business_profiles", "clients", "invoices", "invoice_items",
		"record_archives", "users_activity_logs", "goose_db_version",
	} {
		assert.True(t, tableExists(t, db, table), table)
	}

	v, err := Version(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestUp_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, Up(ctx, db, "sqlite"))
	require.NoError(t, Up(ctx, db, "sqlite"))
}

func TestUp_ArchiveUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, Up(ctx, db, "sqlite"))

	insert := `INSERT INTO record_archives (family, original_id, payload, created_at, deleted_at)
		VALUES ('client', 1, '{}', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	_, err := db.ExecContext(ctx, insert)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert)
	assert.Error(t, err)
}

func TestUp_UnsupportedDriver(t *testing.T) {
	err := Up(context.Background(), nil, "mysql")
	assert.Error(t, err)
}

func TestUp_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("boom")
	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return boom
	}

	err := Up(context.Background(), nil, "pgx")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "postgres", gotDir)
}
