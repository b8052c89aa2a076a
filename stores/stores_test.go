package stores

import (
	"database/sql"
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) dbx.Builder {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := dbx.NewFromDB(sqlDB, "sqlite")
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))
}
