package schemalift

// Script parser modes recognized in configuration.
const (
	// ParserDelimited splits scripts on a redefinable statement
	// delimiter, honoring comments and quoted strings.
	ParserDelimited = "delimited"

	// ParserLegacy splits scripts per line. Selectable only when
	// explicitly configured.
	ParserLegacy = "legacy"
)

// Config holds settings for the schema lifecycle engine.
type Config struct {
	// Name is the database file name. It is also the key of the seed
	// image inside the bundled assets.
	Name string

	// Dir is the directory holding the live database file.
	Dir string

	// TargetVersion is the schema version this build of the application
	// expects. Must be >= 0.
	TargetVersion int

	// Parser selects the script-parsing mode, "delimited" or "legacy".
	// Empty selects "delimited".
	Parser string

	// ForeignKeys reports whether the engine build supports foreign-key
	// enforcement. The capability is probed once, by the caller.
	ForeignKeys bool

	// MigrationDir is the subtree of the assets holding migration
	// scripts (default "migrations").
	MigrationDir string

	// ScriptSuffix is the migration file suffix stripped before the
	// identifier parse (default ".sql").
	ScriptSuffix string
}

// DefaultConfig provides default values for configuration.
var DefaultConfig = Config{
	Parser:       ParserDelimited,
	MigrationDir: "migrations",
	ScriptSuffix: ".sql",
}
