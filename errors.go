package schemalift

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAssetIO marks a failure reading a bundled asset, copying the seed
// image, or exporting the live database file.
var ErrAssetIO = errors.New("asset i/o failure")

// ErrBadScriptName marks a migration file whose name does not parse as
// an integer identifier after suffix removal. Always non-fatal: the
// file is skipped regardless of phase.
var ErrBadScriptName = errors.New("non-numeric migration script name")

// StatementError reports a single statement failing against the engine.
// Statement failures roll back the enclosing phase transaction.
type StatementError struct {
	// Script is the originating migration script name. Empty for
	// statements issued from the schema registry.
	Script string

	// Statement is the SQL text that failed.
	Statement string

	// Err is the underlying engine error.
	Err error
}

func (e *StatementError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("statement failed in %s: %v: %s", e.Script, e.Err, e.Statement)
	}
	return fmt.Sprintf("statement failed: %v: %s", e.Err, e.Statement)
}

func (e *StatementError) Unwrap() error { return e.Err }
