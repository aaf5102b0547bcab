// SPDX-License-Identifier: MIT

// Package schemalift manages the on-disk schema lifecycle of an embedded
// SQLite database across application versions: provisioning a bundled
// seed image on first use, applying ordered incremental change scripts
// between schema versions, and reconciling a freshly shipped seed with
// previously accumulated user data during an upgrade.
//
// The connection-lifecycle framework hosting the database decides when
// each phase fires; schemalift exposes the three phases as explicit
// entry points on a Helper:
//
//	OnCreate(ctx, conn)            // first open: tables, migrations, indexes
//	OnUpgrade(ctx, conn, old, new) // version bump: tables, migrations, seed merge
//	OnOpen(ctx, conn)              // every open: session pragmas
//
// # Quick start
//
//	import (
//	    "context"
//	    "database/sql"
//
//	    _ "github.com/mattn/go-sqlite3"
//	    "github.com/schemalift/schemalift"
//	)
//
//	func main() {
//	    cfg := schemalift.Config{
//	        Name:          "app.db",
//	        Dir:           "data",
//	        TargetVersion: 4,
//	    }
//	    h, _ := schemalift.NewHelper(cfg, assets, registry)
//
//	    db, _ := sql.Open("sqlite3", "data/app.db")
//	    conn, _ := db.Conn(context.Background())
//	    h.OnOpen(context.Background(), conn)
//	}
//
// Entry points take a *sql.Conn rather than a *sql.DB because session
// settings such as foreign-key enforcement are connection-scoped; a
// pooled handle would apply them to an arbitrary connection.
//
// # Configuration
//
// Use Config to tweak behaviour:
//
//   - Name: database file name, and the seed image's key in the assets
//   - Dir: directory holding the live database file
//   - TargetVersion: schema version this build expects (>= 0)
//   - Parser: script-parsing mode ("delimited" or "legacy")
//   - ForeignKeys: whether the engine build enforces foreign keys
//
// # Assets
//
// Bundled assets are any io/fs.FS, typically an embed.FS, holding the
// seed database image under Name and migration scripts under
// "migrations/". Migration files are named "<version>.sql" where
// version is a base-10 integer; files that do not parse are skipped
// with a warning. Scripts are ordered naturally, so "2.sql" runs
// before "10.sql".
//
// # Script parsing
//
// Two parsing strategies split a script into statements. The default
// delimited mode understands DELIMITER redefinition directives, SQL
// comments and quoted strings, so trigger and procedure bodies holding
// embedded terminators survive as a single statement. The legacy mode
// splits per line and must be configured explicitly; it exists for
// script sets written against its known limitations and is not a bug
// to be fixed.
//
// # Upgrade merge
//
// During OnUpgrade, after migrations commit, the live database file is
// backed up, overwritten with the bundled seed image, and any table
// present in the backup but absent from the seed is copied back. The
// restore is table-granularity: rows of tables that exist in both seed
// and backup come from the seed alone. Merge failures degrade to a
// logged no-op; the returned MergeReport carries what happened.
package schemalift
