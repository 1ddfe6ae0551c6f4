package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripmind/migrations"
	"github.com/pkordes/tripmind/testutil"
)

var tables = []string{"trips", "session_kv"}

// TestMigrations applies every migration, checks the schema, then rolls all
// of them back. It starts from version 0 because another package's TestMain
// may already have migrated the shared test database.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err, "create goose provider")

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "initial reset")

	results, err := provider.Up(ctx)
	require.NoError(t, err, "goose up")
	assert.Len(t, results, 2)
	for _, table := range tables {
		assert.True(t, tableExists(t, db, table), "expected table %q to exist", table)
	}
	assert.Equal(t, "u", relPersistence(t, db, "session_kv"), "session_kv must be UNLOGGED")
	assert.Equal(t, "p", relPersistence(t, db, "trips"))

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "goose down-to 0")
	for _, table := range tables {
		assert.False(t, tableExists(t, db, table), "expected table %q to be dropped", table)
	}

	// Leave the database migrated for packages that run after this one.
	_, err = provider.Up(ctx)
	require.NoError(t, err, "goose up (restore)")
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`
	var exists bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, table).Scan(&exists))
	return exists
}

// relPersistence returns pg_class.relpersistence: "p" permanent, "u" unlogged.
func relPersistence(t *testing.T, db *sql.DB, table string) string {
	t.Helper()
	var p string
	err := db.QueryRowContext(context.Background(),
		`SELECT relpersistence::text FROM pg_class WHERE relname = $1 AND relkind = 'r'`, table).Scan(&p)
	require.NoError(t, err)
	return p
}
