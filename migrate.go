package schemalift

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Script describes one discovered migration script.
type Script struct {
	// Name is the file name inside the migration directory.
	Name string

	// Version is the identifier derived from the file name.
	Version int
}

// ListScripts returns the migration scripts found under cfg's migration
// directory in natural order. Files whose names do not parse as an
// integer after suffix removal are skipped with a warning. An asset
// bundle without a migration directory yields an empty set; shipping a
// seed image alone is a valid configuration. The set is re-derived
// fresh on every call; nothing is cached.
func ListScripts(assets fs.FS, cfg Config) ([]Script, error) {
	if cfg.MigrationDir == "" {
		cfg.MigrationDir = DefaultConfig.MigrationDir
	}
	if cfg.ScriptSuffix == "" {
		cfg.ScriptSuffix = DefaultConfig.ScriptSuffix
	}
	entries, err := fs.ReadDir(assets, cfg.MigrationDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: listing %s: %v", ErrAssetIO, cfg.MigrationDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sortNatural(names)

	var scripts []Script
	for _, name := range names {
		version, err := scriptVersion(name, cfg.ScriptSuffix)
		if err != nil {
			log.WithField("script", name).Warn("skipping invalidly named migration file")
			continue
		}
		scripts = append(scripts, Script{Name: name, Version: version})
	}
	return scripts, nil
}

// scriptVersion derives the integer identifier of a migration script
// from its file name.
func scriptVersion(name, suffix string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSuffix(name, suffix))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadScriptName, name)
	}
	return v, nil
}

// applyRange executes every migration script whose identifier v
// satisfies oldVersion < v <= newVersion, in natural order, inside one
// transaction for the entire selected set. Either every statement of
// every selected script commits, or the whole batch rolls back and the
// error propagates; no partial migration ever persists.
//
// The boolean result reports whether at least one script was applied.
// Callers use it for logging only. oldVersion == newVersion selects
// zero scripts.
func (h *Helper) applyRange(ctx context.Context, conn *sql.Conn, oldVersion, newVersion int) (bool, error) {
	scripts, err := ListScripts(h.assets, h.cfg)
	if err != nil {
		return false, err
	}
	var run []Script
	for _, s := range scripts {
		if s.Version > oldVersion && s.Version <= newVersion {
			run = append(run, s)
		}
	}
	if len(run) == 0 {
		return false, nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "beginning migration transaction")
	}
	for _, s := range run {
		stmts, err := h.parseScript(s.Name)
		if err != nil {
			tx.Rollback()
			return false, err
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return false, &StatementError{Script: s.Name, Statement: stmt, Err: err}
			}
		}
		log.WithField("script", s.Name).Info("migration executed successfully")
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "committing migration batch")
	}
	return true, nil
}

// parseScript reads one migration script from the assets and splits it
// into statements with the configured parser mode.
func (h *Helper) parseScript(name string) ([]string, error) {
	f, err := h.assets.Open(path.Join(h.cfg.MigrationDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: opening script %s: %v", ErrAssetIO, name, err)
	}
	defer f.Close()
	return h.parser.Parse(f)
}
