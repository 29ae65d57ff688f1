// Package dberr defines the distinct error kinds the storage engine
// surfaces to its callers (see spec §7: error handling design). Each kind
// is a package-level sentinel; call sites wrap it with github.com/pkg/errors
// so that errors.Is still matches the sentinel while the wrapped message
// carries the specific offending name, value, or page.
package dberr

import "github.com/pkg/errors"

var (
	// ErrSchemaConflict: a table or attribute name collision.
	ErrSchemaConflict = errors.New("schema conflict")
	// ErrUnknownTable: a table name lookup miss at the API boundary.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownAttribute: an attribute name lookup miss.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrTypeMismatch: a value does not match its attribute's data type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrLengthExceeded: a CHAR/VARCHAR value exceeds its max length.
	ErrLengthExceeded = errors.New("length exceeded")
	// ErrNullInNotNull: a null value was supplied for a NOT NULL attribute.
	ErrNullInNotNull = errors.New("null in not-null attribute")
	// ErrPrimaryKeyViolation: the primary key scan found an equal value.
	ErrPrimaryKeyViolation = errors.New("primary key violation")
	// ErrIOFailure: a heap-file read or write failed, or a page offset lies
	// past EOF. Fatal for the in-flight operation.
	ErrIOFailure = errors.New("io failure")
	// ErrInvariantBreach: a page-format or split invariant was violated.
	// Fatal; the engine should not continue operating on the affected state.
	ErrInvariantBreach = errors.New("invariant breach")
)

// Wrap attaches msg as context to err while preserving errors.Is matching
// against the sentinel.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with Printf-style formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
