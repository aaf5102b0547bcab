package schemalift

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Helper drives the open/create/upgrade workflow of one embedded
// database. The hosting connection-lifecycle framework is expected to
// serialize calls per database file; Helper performs no locking of its
// own.
type Helper struct {
	cfg      Config
	assets   fs.FS
	registry Registry
	files    afero.Fs
	parser   Parser
}

// Option customizes a Helper.
type Option func(*Helper)

// WithFilesystem overrides the filesystem holding the live database
// file, its transient backups and scaffolded scripts. The default is
// the host filesystem. The engine driver and the merge's ATTACH resolve
// paths against the host filesystem regardless, so DB-touching phases
// require an OS-backed Fs; non-OS filesystems suit seed provisioning,
// scaffolding and fault-injection tests.
func WithFilesystem(files afero.Fs) Option {
	return func(h *Helper) { h.files = files }
}

// NewHelper creates a Helper and provisions the bundled seed image if
// no database file exists yet. Provisioning failure is logged and does
// not fail construction: the next open attempt surfaces the damage.
//
// assets holds the seed image under cfg.Name and migration scripts
// under cfg.MigrationDir. registry enumerates the table definitions
// issued during the create phase.
func NewHelper(cfg Config, assets fs.FS, registry Registry, opts ...Option) (*Helper, error) {
	// Merge defaults.
	if cfg.Parser == "" {
		cfg.Parser = DefaultConfig.Parser
	}
	if cfg.MigrationDir == "" {
		cfg.MigrationDir = DefaultConfig.MigrationDir
	}
	if cfg.ScriptSuffix == "" {
		cfg.ScriptSuffix = DefaultConfig.ScriptSuffix
	}
	if cfg.Name == "" {
		return nil, errors.New("database name must not be empty")
	}
	if cfg.TargetVersion < 0 {
		return nil, errors.Errorf("target schema version must be >= 0, got %d", cfg.TargetVersion)
	}
	parser, err := newParser(cfg.Parser)
	if err != nil {
		return nil, err
	}

	h := &Helper{
		cfg:      cfg,
		assets:   assets,
		registry: registry,
		files:    afero.NewOsFs(),
		parser:   parser,
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.EnsureSeed(); err != nil {
		log.WithError(err).Error("failed to provision seed database")
	}
	return h, nil
}

// databasePath is the location of the live database file.
func (h *Helper) databasePath() string {
	return filepath.Join(h.cfg.Dir, h.cfg.Name)
}

// OnOpen applies session settings. It must run on every new connection
// handle before any other statement.
func (h *Helper) OnOpen(ctx context.Context, conn *sql.Conn) error {
	return h.applySessionSettings(ctx, conn)
}

// OnCreate builds the schema of a freshly provisioned database: session
// settings, registry tables, migrations from the version sentinel -1 up
// to the target version, then registry indexes. Index creation runs
// after migrations so scripts may still alter table shape before
// indexes are built against the final shape.
//
// Any failure past session settings rolls back its own phase and is
// fatal for this open attempt.
func (h *Helper) OnCreate(ctx context.Context, conn *sql.Conn) error {
	if err := h.applySessionSettings(ctx, conn); err != nil {
		return err
	}
	if err := h.createAll(ctx, conn); err != nil {
		return err
	}
	if _, err := h.applyRange(ctx, conn, -1, h.cfg.TargetVersion); err != nil {
		return err
	}
	return h.createAllIndexes(ctx, conn)
}

// OnUpgrade moves the schema from oldVersion to newVersion: session
// settings, registry tables, migrations in (oldVersion, newVersion],
// then the seed merge. Schema and migration failures propagate and fail
// the upgrade; merge failures degrade and are reported through the
// returned MergeReport only.
func (h *Helper) OnUpgrade(ctx context.Context, conn *sql.Conn, oldVersion, newVersion int) (*MergeReport, error) {
	if err := h.applySessionSettings(ctx, conn); err != nil {
		return nil, err
	}
	if err := h.createAll(ctx, conn); err != nil {
		return nil, err
	}
	applied, err := h.applyRange(ctx, conn, oldVersion, newVersion)
	if err != nil {
		return nil, err
	}
	if applied {
		log.WithFields(log.Fields{
			"old": oldVersion,
			"new": newVersion,
		}).Info("migrations applied")
	}
	return h.mergeSeedDatabase(ctx, conn), nil
}
