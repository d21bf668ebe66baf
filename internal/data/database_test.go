//go:build integration

package data

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalDSN(t *testing.T) {
	require.Equal(t, "archive.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", LocalDSN("archive.db"))
	require.Equal(t, "file:archive.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", LocalDSN("file:archive.db?mode=rwc"))
}

func TestNewLocalDB_PragmasSurviveReconnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	require.NoError(t, ApplyMigrations(DialectSQLite, path))

	db, err := NewLocalDB(path)
	require.NoError(t, err)
	defer db.Close()
	// every query below runs on a freshly opened connection
	db.SetMaxIdleConns(0)

	for i := 0; i < 2; i++ {
		var fk, timeout int
		require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
		require.Equal(t, 1, fk)
		require.NoError(t, db.Get(&timeout, "PRAGMA busy_timeout"))
		require.Equal(t, 5000, timeout)
	}

	_, err = db.Exec(`INSERT INTO nodes (id, name, kind, parent_id, created_at, updated_at) VALUES ('x', 'x', 'folder', 'nope', 1, 1)`)
	require.Error(t, err, "dangling parent is rejected")
}

func TestSchemaSQL(t *testing.T) {
	mysql, err := SchemaSQL(DialectMySQL)
	require.NoError(t, err)
	require.Contains(t, mysql, "CREATE TABLE IF NOT EXISTS nodes")
	require.NotContains(t, mysql, "casbin_rule", "authorization policies stay local")

	sqlite, err := SchemaSQL(DialectSQLite)
	require.NoError(t, err)
	require.Contains(t, sqlite, "casbin_rule")
}
