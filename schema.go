package schemalift

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// TableDef describes one table owned by the external schema registry:
// its name, the statement creating it, and zero or more statements
// creating its indexes.
type TableDef struct {
	Name      string
	CreateSQL string
	IndexSQL  []string
}

// Registry is the schema-metadata collaborator. It exposes the ordered
// table definitions issued during the create and index phases; the set
// is owned and versioned by the application's model layer, not by this
// engine. The create phase re-runs on every upgrade, so definitions
// are expected to be idempotent (CREATE TABLE IF NOT EXISTS ...).
type Registry interface {
	Tables() []TableDef
}

// SQLRegistry is a static Registry backed by literal SQL definitions.
type SQLRegistry []TableDef

// Tables implements Registry.
func (r SQLRegistry) Tables() []TableDef { return r }

// createAll issues one create-table statement per registry definition
// inside a single transaction. Any failure rolls the whole batch back
// and propagates.
func (h *Helper) createAll(ctx context.Context, conn *sql.Conn) error {
	if h.registry == nil {
		return nil
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning create transaction")
	}
	for _, t := range h.registry.Tables() {
		if _, err := tx.ExecContext(ctx, t.CreateSQL); err != nil {
			tx.Rollback()
			return &StatementError{Statement: t.CreateSQL, Err: err}
		}
	}
	return errors.Wrap(tx.Commit(), "committing create phase")
}

// createAllIndexes issues the registry's index statements in a second,
// separate transaction. It runs after migrations so indexes are built
// against the final table shape.
func (h *Helper) createAllIndexes(ctx context.Context, conn *sql.Conn) error {
	if h.registry == nil {
		return nil
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning index transaction")
	}
	for _, t := range h.registry.Tables() {
		for _, stmt := range t.IndexSQL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return &StatementError{Statement: stmt, Err: err}
			}
		}
	}
	return errors.Wrap(tx.Commit(), "committing index phase")
}
