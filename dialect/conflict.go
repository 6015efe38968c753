package dialect

import (
	"errors"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation = "23505"
	pgSyntaxError     = "42601"

	mysqlDuplicateEntry = 1062
	mysqlParseError     = 1064
)

// IsUniqueViolation reports whether err, or an error it wraps, is a
// uniqueness or primary key violation reported by any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pgconn.PgError](err); ok {
		return e.Code == pgUniqueViolation
	}
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code) == pgUniqueViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlDuplicateEntry
	}
	if e, ok := asError[*sqlitedrv.Error](err); ok {
		code := e.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// Drivers wrapped by proxies lose their types.
	return containsAny(err.Error(),
		"violates unique constraint",
		"UNIQUE constraint failed",
		"Error 1062",
	)
}

// IsPrimaryKeyViolation reports whether err is a uniqueness violation of
// the primary key column of table, as opposed to another unique constraint
// or index of the same table.
func IsPrimaryKeyViolation(err error, table, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	names := []string{table + "__pk_" + column, table + "_pkey"}
	if e, ok := asError[*pgconn.PgError](err); ok {
		return slices.Contains(names, e.ConstraintName)
	}
	if e, ok := asError[*pq.Error](err); ok {
		return slices.Contains(names, e.Constraint)
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return strings.Contains(e.Message, "PRIMARY'")
	}
	sqliteKey := "UNIQUE constraint failed: " + table + "." + column
	if e, ok := asError[*sqlitedrv.Error](err); ok {
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || endsIdent(e.Error(), sqliteKey)
	}
	msg := err.Error()
	for _, name := range names {
		if strings.Contains(msg, `constraint "`+name+`"`) {
			return true
		}
	}
	return strings.Contains(msg, "PRIMARY'") ||
		endsIdent(msg, sqliteKey)
}

// endsIdent reports whether s contains prefix not followed by another
// identifier character.
func endsIdent(s, prefix string) bool {
	for {
		i := strings.Index(s, prefix)
		if i < 0 {
			return false
		}
		s = s[i+len(prefix):]
		if s == "" {
			return true
		}
		switch c := s[0]; {
		case c == '_', c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return true
		}
	}
}

// IsSyntaxError reports whether the server rejected the statement text
// itself. Such failures are never skipped by batches run with ignore errors.
func IsSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pgconn.PgError](err); ok {
		return e.Code == pgSyntaxError
	}
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code) == pgSyntaxError
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlParseError
	}
	return containsAny(err.Error(), "syntax error")
}

// asError finds the first error of type T in the chain of err.
func asError[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
