package schemalift

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// applySessionSettings applies engine-level session settings.
// Enforcement state is connection-scoped, so this runs on every open,
// create and upgrade, before any other statement.
func (h *Helper) applySessionSettings(ctx context.Context, conn *sql.Conn) error {
	if !h.cfg.ForeignKeys {
		return nil
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		return errors.Wrap(err, "enabling foreign key enforcement")
	}
	log.Debug("foreign keys supported, enforcement enabled")
	return nil
}
