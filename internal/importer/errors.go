package importer

import (
	"errors"
	"fmt"
	"strings"
)

// MissingColumnsError reports required columns absent from an extract's
// header. The whole batch fails before any row is processed.
type MissingColumnsError struct {
	Kind    ImportKind
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns for %s import: %s", e.Kind, strings.Join(e.Columns, ", "))
}

// PersistenceError marks a storage-layer failure. It is fatal for the
// remaining batch; re-running the same input is the recovery path.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
