package schemalift

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// buildDatabase creates (or extends) a SQLite database file at path by
// executing stmts against it.
func buildDatabase(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, "statement: %s", s)
	}
}

// seedImage builds a throwaway database from stmts and returns its
// bytes, for use as a bundled seed asset.
func seedImage(t *testing.T, stmts ...string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.db")
	buildDatabase(t, path, stmts...)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// openTestConn pins one connection to the database file at path and
// registers cleanup.
func openTestConn(t *testing.T, path string) *sql.Conn {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		db.Close()
	})
	return conn
}

// queryStrings runs a single-column query on conn and returns the rows.
func queryStrings(t *testing.T, conn *sql.Conn, query string, args ...any) []string {
	t.Helper()
	rows, err := conn.QueryContext(context.Background(), query, args...)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

// countRows returns the row count of table on conn.
func countRows(t *testing.T, conn *sql.Conn, table string) int {
	t.Helper()
	var n int
	err := conn.QueryRowContext(context.Background(), "SELECT count(*) FROM "+table).Scan(&n)
	require.NoError(t, err)
	return n
}

// tableNames returns the user tables of the database on conn.
func tableNames(t *testing.T, conn *sql.Conn) []string {
	t.Helper()
	return queryStrings(t, conn,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
}
