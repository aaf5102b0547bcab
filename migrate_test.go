package schemalift

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func migrationAssets(files map[string]string) fstest.MapFS {
	assets := fstest.MapFS{}
	for name, sql := range files {
		assets["migrations/"+name] = &fstest.MapFile{Data: []byte(sql)}
	}
	return assets
}

// newMigrationHelper builds a Helper over a real database file in a
// temporary directory, pre-created so constructor provisioning is a
// no-op.
func newMigrationHelper(t *testing.T, assets fstest.MapFS, registry Registry, cfg Config) (*Helper, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.db")
	buildDatabase(t, path)

	cfg.Name = "app.db"
	cfg.Dir = dir
	h, err := NewHelper(cfg, assets, registry)
	require.NoError(t, err)
	return h, path
}

// TestApplyRangeHalfOpenInterval verifies that scripts with identifier
// v satisfying old < v <= new run, and nothing else.
func TestApplyRangeHalfOpenInterval(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"1.sql": "CREATE TABLE t1 (id integer);",
		"2.sql": "CREATE TABLE t2 (id integer);",
		"3.sql": "CREATE TABLE t3 (id integer);",
		"5.sql": "CREATE TABLE t5 (id integer);",
	})
	h, path := newMigrationHelper(t, assets, nil, Config{})
	conn := openTestConn(t, path)

	applied, err := h.applyRange(context.Background(), conn, 2, 5)
	require.NoError(t, err)
	require.True(t, applied)

	require.Equal(t, []string{"t3", "t5"}, tableNames(t, conn))
}

// TestApplyRangeEqualVersions verifies the idempotent no-op.
func TestApplyRangeEqualVersions(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"1.sql": "CREATE TABLE t1 (id integer);",
	})
	h, path := newMigrationHelper(t, assets, nil, Config{})
	conn := openTestConn(t, path)

	applied, err := h.applyRange(context.Background(), conn, 1, 1)
	require.NoError(t, err)
	require.False(t, applied)
	require.Empty(t, tableNames(t, conn))
}

// TestApplyRangeSkipsInvalidNames verifies that a file whose name does
// not parse as an integer is skipped without failing the batch.
func TestApplyRangeSkipsInvalidNames(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"1.sql":     "CREATE TABLE t1 (id integer);",
		"notes.sql": "CREATE TABLE never (id integer);",
	})
	h, path := newMigrationHelper(t, assets, nil, Config{})
	conn := openTestConn(t, path)

	applied, err := h.applyRange(context.Background(), conn, -1, 1)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, []string{"t1"}, tableNames(t, conn))
}

// TestApplyRangeRollsBackOnFailure verifies that one failing statement
// rolls back every selected script; no partial migration persists.
func TestApplyRangeRollsBackOnFailure(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"1.sql": "CREATE TABLE t1 (id integer);",
		"2.sql": "CREATE TABLE t2 (id integer);\nINSERT INTO missing VALUES (1);",
	})
	h, path := newMigrationHelper(t, assets, nil, Config{})
	conn := openTestConn(t, path)

	_, err := h.applyRange(context.Background(), conn, -1, 2)
	require.Error(t, err)

	var stmtErr *StatementError
	require.True(t, stderrors.As(err, &stmtErr))
	require.Equal(t, "2.sql", stmtErr.Script)

	require.Empty(t, tableNames(t, conn), "failed batch must leave no tables behind")
}

// TestApplyRangeNaturalExecutionOrder verifies scripts run in numeric,
// not lexicographic, order: 10.sql depends on 2.sql having run first.
func TestApplyRangeNaturalExecutionOrder(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"2.sql":  "CREATE TABLE log (entry text);",
		"10.sql": "INSERT INTO log VALUES ('ten');",
	})
	h, path := newMigrationHelper(t, assets, nil, Config{})
	conn := openTestConn(t, path)

	applied, err := h.applyRange(context.Background(), conn, -1, 10)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 1, countRows(t, conn, "log"))
}

// TestApplyRangeLegacyParserMode verifies the configured parser mode is
// honored during execution.
func TestApplyRangeLegacyParserMode(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"1.sql": "CREATE TABLE a (id integer);\nCREATE TABLE b (id integer);",
	})
	h, path := newMigrationHelper(t, assets, nil, Config{Parser: ParserLegacy})
	conn := openTestConn(t, path)

	applied, err := h.applyRange(context.Background(), conn, -1, 1)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, []string{"a", "b"}, tableNames(t, conn))
}

// TestApplyRangeFromDiskAssets runs the testdata migration set off the
// real filesystem: range (2, 5] selects exactly scripts 3 and 5.
func TestApplyRangeFromDiskAssets(t *testing.T) {
	h, path := newMigrationHelper(t, nil, nil, Config{})
	h.assets = os.DirFS("testdata")
	conn := openTestConn(t, path)
	ctx := context.Background()

	// Scripts 1 and 2 first, to give 3 its table.
	applied, err := h.applyRange(ctx, conn, -1, 2)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = h.applyRange(ctx, conn, 2, 5)
	require.NoError(t, err)
	require.True(t, applied)

	require.Equal(t, []string{"orders", "widgets"}, tableNames(t, conn))
	require.Equal(t, 1, countRows(t, conn, "widgets"))
}

// TestListScriptsNaturalOrder verifies discovery ordering and the
// non-fatal skip of invalid names.
func TestListScriptsNaturalOrder(t *testing.T) {
	assets := migrationAssets(map[string]string{
		"1.sql":      "",
		"10.sql":     "",
		"2.sql":      "",
		"README.txt": "not a script",
	})
	scripts, err := ListScripts(assets, Config{})
	require.NoError(t, err)

	var versions []int
	for _, s := range scripts {
		versions = append(versions, s.Version)
	}
	require.Equal(t, []int{1, 2, 10}, versions)
}

// TestListScriptsMissingDirectory verifies that an asset bundle with
// no migration directory yields an empty set, not a failure. A seed
// image alone is a valid bundle.
func TestListScriptsMissingDirectory(t *testing.T) {
	scripts, err := ListScripts(fstest.MapFS{}, Config{})
	require.NoError(t, err)
	require.Empty(t, scripts)
}

// TestListScriptsUnreadableDirectory verifies the error kind when the
// migration directory exists but cannot be listed.
func TestListScriptsUnreadableDirectory(t *testing.T) {
	assets := fstest.MapFS{
		"migrations": &fstest.MapFile{Data: []byte("a file, not a directory")},
	}
	_, err := ListScripts(assets, Config{})
	require.Error(t, err)
	require.True(t, stderrors.Is(err, ErrAssetIO))
}
