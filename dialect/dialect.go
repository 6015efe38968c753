// Package dialect holds everything that differs between the supported SQL
// backends: identifier quoting, literal escaping, placeholders, column types,
// savepoints and a handful of function spellings.
package dialect

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/dblayer/schema"
)

// Dialect names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
	MySQL    = "mysql"
)

// Dialect renders backend specific SQL pieces. Implementations are
// stateless and safe for concurrent use.
type Dialect interface {
	Name() string

	// QuoteIdent quotes a table, column or constraint name.
	QuoteIdent(name string) string

	// QuoteLiteral renders v as an SQL literal. Only DDL uses it; runtime
	// statements always bind values as parameters.
	QuoteLiteral(v any) (string, error)

	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder(n int) string

	// ColumnType returns the column definition type, including the inline
	// primary key clause of serial keys.
	ColumnType(c *schema.Column) (string, error)

	// Func spells op with already formatted arguments when the backend
	// differs from the portable rendering. ok is false otherwise. Every
	// argument is used exactly once and in order, so bind parameters keep
	// their positions.
	Func(op schema.Op, args []string) (sql string, ok bool)

	// ILike renders a case insensitive LIKE.
	ILike(left, right string) string

	// Returning reports whether INSERT ... RETURNING is available. When it
	// is not, LastInsertID is queried after the insert.
	Returning() bool
	LastInsertID() string

	// Procedures reports support for stored procedures, languages and
	// triggers.
	Procedures() bool

	// Truncate empties the tables, given in the order to clear them.
	Truncate(tables []string) []string
}

// Savepoint statements are spelled the same on every supported backend.
// name must already be quoted when it needs quoting.
func Savepoint(name string) string           { return "SAVEPOINT " + name }
func ReleaseSavepoint(name string) string    { return "RELEASE SAVEPOINT " + name }
func RollbackToSavepoint(name string) string { return "ROLLBACK TO SAVEPOINT " + name }

var registry = map[string]Dialect{
	Postgres:     postgres{},
	"postgresql": postgres{},
	"pgx":        postgres{},
	SQLite:       sqlite{},
	"sqlite3":    sqlite{},
	MySQL:        mysqlDialect{},
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (supported: %s, %s, %s)", name, Postgres, SQLite, MySQL)
	}
	return d, nil
}

// MustGet is like Get but panics on unknown names.
func MustGet(name string) Dialect {
	d, err := Get(name)
	if err != nil {
		panic(err)
	}
	return d
}

// FromURL guesses the dialect from a connection string.
func FromURL(url string) (Dialect, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres{}, nil
	case strings.HasPrefix(url, "mysql://"), strings.Contains(url, "@tcp("):
		return mysqlDialect{}, nil
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"),
		strings.HasSuffix(url, ".db"), url == ":memory:":
		return sqlite{}, nil
	}
	return nil, fmt.Errorf("cannot tell the dialect of %q", url)
}
