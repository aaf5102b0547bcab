package schemalift

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MergeReport describes the outcome of the post-upgrade seed merge.
// Merge failures degrade rather than failing the upgrade call; the
// report lets an observability collaborator distinguish them.
type MergeReport struct {
	// Skipped is true when the backup export failed and the merge was
	// not attempted. The database is left as the migration phase
	// produced it, an accepted data-loss window for tables the
	// migrations do not cover.
	Skipped bool

	// Restored lists the tables copied back from the backup, i.e. the
	// tables absent from the new seed image.
	Restored []string

	// Err is the non-fatal error of a merge step, if any. It is logged
	// and reported here, never propagated to the upgrade caller.
	Err error
}

// mergeSeedDatabase reconciles the freshly shipped seed image with
// previously accumulated user data. It exports the live database file
// to a transient backup, overwrites the live file with the bundled
// seed, then restores from the backup every table entirely absent from
// the seed.
//
// The restore is table-granularity: a table the seed already created
// is left as the seed shipped it, and the backup's rows for it are
// discarded. Row-level reconciliation of shared tables is intentionally
// not performed.
func (h *Helper) mergeSeedDatabase(ctx context.Context, conn *sql.Conn) *MergeReport {
	report := &MergeReport{}
	live := h.databasePath()
	backup := live + "." + uuid.NewString() + ".bak"

	if err := h.exportDatabase(live, backup); err != nil {
		log.WithError(err).Error("database backup failed, skipping merge")
		report.Skipped = true
		report.Err = err
		return report
	}
	defer h.files.Remove(backup)

	if err := h.writeSeed(live); err != nil {
		log.WithError(err).Error("failed to overwrite database with seed image")
		report.Err = err
		return report
	}

	tables, err := h.backupTables(backup)
	if err != nil {
		log.WithError(err).Error("failed to read backup table catalog")
		report.Err = err
		return report
	}

	restored, err := h.restoreMissingTables(ctx, conn, backup, tables)
	if err != nil {
		log.WithError(err).Error("failed to restore tables from backup")
		report.Err = err
		return report
	}
	report.Restored = restored
	return report
}

// exportDatabase copies the live database file to a side path before
// the merge overwrites it. The backup is a private, short-lived
// resource of one merge invocation, never an authoritative copy.
func (h *Helper) exportDatabase(live, backup string) error {
	src, err := h.files.Open(live)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrAssetIO, live, err)
	}
	defer src.Close()

	dst, err := h.files.Create(backup)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrAssetIO, backup, err)
	}

	buf := make([]byte, seedCopyBuffer)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		dst.Close()
		return fmt.Errorf("%w: exporting database to %s: %v", ErrAssetIO, backup, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", ErrAssetIO, backup, err)
	}
	return nil
}

// backupTables opens the backup file read-only and enumerates its table
// catalog, excluding the engine's internal sequence-tracking table.
func (h *Helper) backupTables(backup string) ([]string, error) {
	db, err := sql.Open("sqlite3", "file:"+backup+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(err, "opening backup database")
	}
	defer db.Close()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, errors.Wrap(err, "reading backup table catalog")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scanning backup table name")
		}
		if name == "sqlite_sequence" {
			continue
		}
		tables = append(tables, name)
	}
	return tables, errors.Wrap(rows.Err(), "iterating backup table catalog")
}

// restoreMissingTables attaches the backup under the "old" alias and,
// in one transaction, re-creates from it every table the seed image did
// not ship. CREATE TABLE IF NOT EXISTS makes the copy a no-op for
// tables the seed already created. The backup is detached regardless of
// success or failure.
func (h *Helper) restoreMissingTables(ctx context.Context, conn *sql.Conn, backup string, tables []string) ([]string, error) {
	// Single quotes in the path are doubled to keep the literal intact.
	attach := "ATTACH DATABASE '" + strings.ReplaceAll(backup, "'", "''") + "' AS old"
	if _, err := conn.ExecContext(ctx, attach); err != nil {
		return nil, errors.Wrap(err, "attaching backup database")
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "DETACH DATABASE old"); err != nil {
			log.WithError(err).Warn("failed to detach backup database")
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning merge transaction")
	}
	var restored []string
	for _, table := range tables {
		var present int
		err := tx.QueryRowContext(ctx,
			"SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&present)
		if err != nil {
			tx.Rollback()
			return nil, errors.Wrapf(err, "probing live table %s", table)
		}
		stmt := "CREATE TABLE IF NOT EXISTS " + table + " AS SELECT * FROM old." + table
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return nil, &StatementError{Statement: stmt, Err: err}
		}
		if present == 0 {
			restored = append(restored, table)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing merge transaction")
	}
	return restored, nil
}
