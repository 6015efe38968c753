// Package dblayer compiles a declarative relational schema into parameterized
// SQL and orders the DDL needed to create, drop and truncate it.
//
// The subpackages do the work; this package only holds the error taxonomy
// shared by all of them.
package dblayer

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrFormat            = errors.New("dblayer: format error")
	ErrUnknownCondition  = errors.New("dblayer: unknown condition")
	ErrInvalidSortKey    = errors.New("dblayer: invalid sort key")
	ErrMissingPrimaryKey = errors.New("dblayer: missing primary key")
	ErrConflict          = errors.New("dblayer: conflict")
	ErrDDLBatch          = errors.New("dblayer: ddl batch failed")

	// ErrNotWritable is returned for insert, update or delete on a table
	// declared read-only.
	ErrNotWritable = errors.New("dblayer: table is not writable")
)

// FormatError reports an expression that references an unknown column or
// a value whose type disagrees with the column it is bound to.
type FormatError struct {
	Object string // table, query or column the failure is about
	Msg    string
}

// Error returns the error string.
func (e *FormatError) Error() string {
	if e.Object == "" {
		return "dblayer: " + e.Msg
	}
	return fmt.Sprintf("dblayer: %s: %s", e.Object, e.Msg)
}

// Is reports whether the target error matches FormatError.
func (e *FormatError) Is(err error) bool {
	return err == ErrFormat
}

// NewFormatError returns a FormatError for object with a formatted message.
func NewFormatError(object, format string, args ...any) *FormatError {
	return &FormatError{Object: object, Msg: fmt.Sprintf(format, args...)}
}

// IsFormat returns true if the error is a FormatError.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}

// UnknownConditionError is returned when a runtime condition name is not
// present in the compiled condition map.
type UnknownConditionError struct {
	Source string // table or query name
	Name   string
	Value  any
}

// Error returns the error string.
func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("dblayer: %s received unknown condition: %s=%#v", e.Source, e.Name, e.Value)
}

// Is reports whether the target error matches UnknownConditionError.
func (e *UnknownConditionError) Is(err error) bool {
	return err == ErrUnknownCondition
}

// IsUnknownCondition returns true if the error is an UnknownConditionError.
func IsUnknownCondition(err error) bool {
	return errors.Is(err, ErrUnknownCondition)
}

// InvalidSortKeyError is returned for order-by keys absent from the
// compiled order-by map.
type InvalidSortKeyError struct {
	Source string
	Key    string
}

// Error returns the error string.
func (e *InvalidSortKeyError) Error() string {
	return fmt.Sprintf("dblayer: %s cannot be ordered by %q", e.Source, e.Key)
}

// Is reports whether the target error matches InvalidSortKeyError.
func (e *InvalidSortKeyError) Is(err error) bool {
	return err == ErrInvalidSortKey
}

// IsInvalidSortKey returns true if the error is an InvalidSortKeyError.
func IsInvalidSortKey(err error) bool {
	return errors.Is(err, ErrInvalidSortKey)
}

// MissingPrimaryKeyError is returned when an id-based operation is attempted
// on a table that has no primary key.
type MissingPrimaryKeyError struct {
	Table     string
	Operation string
}

// Error returns the error string.
func (e *MissingPrimaryKeyError) Error() string {
	return fmt.Sprintf("dblayer: %s on table %q requires a primary key", e.Operation, e.Table)
}

// Is reports whether the target error matches MissingPrimaryKeyError.
func (e *MissingPrimaryKeyError) Is(err error) bool {
	return err == ErrMissingPrimaryKey
}

// IsMissingPrimaryKey returns true if the error is a MissingPrimaryKeyError.
func IsMissingPrimaryKey(err error) bool {
	return errors.Is(err, ErrMissingPrimaryKey)
}

// ConflictError is returned when an insert supplying an explicit primary key
// hit a uniqueness violation. The statement was rolled back to its savepoint,
// so the enclosing transaction is still usable.
type ConflictError struct {
	Table string
	ID    any
	Err   error
}

// Error returns the error string.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("dblayer: conflicting insert into %q (id=%v): %v", e.Table, e.ID, e.Err)
}

// Is reports whether the target error matches ConflictError.
func (e *ConflictError) Is(err error) bool {
	return err == ErrConflict
}

// Unwrap returns the driver error.
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsConflict returns true if the error is a ConflictError.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// DDLBatchError wraps the first failing statement of a batch executed
// without ignore_errors.
type DDLBatchError struct {
	Statement string
	Index     int
	Err       error
}

// Error returns the error string.
func (e *DDLBatchError) Error() string {
	stmt := e.Statement
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		stmt = stmt[:i] + " ..."
	}
	return fmt.Sprintf("dblayer: statement %d failed: %s: %v", e.Index+1, stmt, e.Err)
}

// Is reports whether the target error matches DDLBatchError.
func (e *DDLBatchError) Is(err error) bool {
	return err == ErrDDLBatch
}

// Unwrap returns the driver error.
func (e *DDLBatchError) Unwrap() error {
	return e.Err
}

// IsDDLBatch returns true if the error is a DDLBatchError.
func IsDDLBatch(err error) bool {
	return errors.Is(err, ErrDDLBatch)
}
