package schema

import (
	"fmt"

	"github.com/ridoystarlord/dblayer"
)

// JoinType is the SQL join keyword used for a joined query table.
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// QueryTable is a table taking part in a query under a unique alias.
type QueryTable struct {
	Alias string
	Table string

	// Referer and ForeignKey join this table through the foreign key
	// column of an alias listed earlier. Both empty start a new cross
	// join group.
	Referer    string
	ForeignKey string

	table *Table
	fk    *Column
}

// Source returns the resolved table.
func (qt *QueryTable) Source() *Table {
	return qt.table
}

// JoinType is INNER for NOT NULL foreign keys and LEFT for nullable ones.
// It is empty for tables starting a cross join group.
func (qt *QueryTable) JoinType() JoinType {
	if qt.Referer == "" {
		return ""
	}
	if qt.fk != nil && qt.fk.Null {
		return LeftJoin
	}
	return InnerJoin
}

// Result is a named query expression. Results are selected; conditions are
// only filtered on.
type Result struct {
	Name string
	Expr Expr

	// Type is required for computed expressions and filled in from the
	// referenced column for plain column results.
	Type *Column

	// Having places a condition after GROUP BY. Results containing
	// aggregates are always having conditions.
	Having bool

	// Sortable lets a condition that is not selected appear in ORDER BY.
	Sortable bool
}

// AfterGroupBy reports whether filters on the result go to HAVING.
func (r *Result) AfterGroupBy() bool {
	return r.Having || IsAggregate(r.Expr)
}

// Query is a read-only composition of aliased tables.
type Query struct {
	Name       string
	Doc        string
	Tables     []*QueryTable
	Results    []*Result
	Conditions []*Result
	GroupBy    []Expr
	OrderBy    []string

	aliases  map[string]*QueryTable
	database *Database
}

// NewQuery starts a query definition.
func NewQuery(name string) *Query {
	return &Query{Name: name}
}

// WithDoc documents the query.
func (q *Query) WithDoc(doc string) *Query {
	q.Doc = doc
	return q
}

// From adds table under alias as the start of a cross join group.
func (q *Query) From(alias, table string) *Query {
	q.Tables = append(q.Tables, &QueryTable{Alias: alias, Table: table})
	return q
}

// Join adds table under alias, joined on referer.foreignKey = alias.pk.
func (q *Query) Join(alias, table, referer, foreignKey string) *Query {
	q.Tables = append(q.Tables, &QueryTable{Alias: alias, Table: table, Referer: referer, ForeignKey: foreignKey})
	return q
}

// Select adds a result whose type comes from the referenced column.
func (q *Query) Select(name string, ref ColumnRef) *Query {
	q.Results = append(q.Results, &Result{Name: name, Expr: ref})
	return q
}

// SelectExpr adds a computed result of type typ.
func (q *Query) SelectExpr(name string, expr Expr, typ *Column) *Query {
	q.Results = append(q.Results, &Result{Name: name, Expr: expr, Type: typ})
	return q
}

// Where adds a condition evaluated before grouping. typ may be nil for
// plain column references.
func (q *Query) Where(name string, expr Expr, typ *Column) *Query {
	q.Conditions = append(q.Conditions, &Result{Name: name, Expr: expr, Type: typ})
	return q
}

// Having adds a condition evaluated after grouping.
func (q *Query) Having(name string, expr Expr, typ *Column) *Query {
	q.Conditions = append(q.Conditions, &Result{Name: name, Expr: expr, Type: typ, Having: true})
	return q
}

// Group sets the GROUP BY expressions.
func (q *Query) Group(exprs ...Expr) *Query {
	q.GroupBy = exprs
	return q
}

// Order sets the default order-by keys.
func (q *Query) Order(keys ...string) *Query {
	q.OrderBy = keys
	return q
}

// Sortable lets the named conditions appear in ORDER BY.
func (q *Query) Sortable(names ...string) *Query {
	for _, c := range q.Conditions {
		for _, n := range names {
			if c.Name == n {
				c.Sortable = true
			}
		}
	}
	return q
}

// Alias returns the table taking part under alias.
func (q *Query) Alias(alias string) *QueryTable {
	return q.aliases[alias]
}

// Resolve returns the column referenced as alias.column.
func (q *Query) Resolve(ref ColumnRef) (*Column, error) {
	qt := q.aliases[ref.Table]
	if qt == nil {
		return nil, dblayer.NewFormatError(q.Name, "unknown table alias %q", ref.Table)
	}
	c := qt.table.Column(ref.Column)
	if c == nil {
		return nil, dblayer.NewFormatError(q.Name, "unknown column %s.%s", ref.Table, ref.Column)
	}
	return c, nil
}

// Qualified is true: columns inside queries are rendered with their alias.
func (q *Query) Qualified() bool { return true }

// ScopeName names the query in errors.
func (q *Query) ScopeName() string { return q.Name }

// Resolve returns the column of the table; ref.Table must be empty or the
// table's own name.
func (t *Table) Resolve(ref ColumnRef) (*Column, error) {
	if ref.Table != "" && ref.Table != t.Name {
		return nil, dblayer.NewFormatError(t.Name, "unknown table %q", ref.Table)
	}
	c := t.Column(ref.Column)
	if c == nil {
		return nil, dblayer.NewFormatError(t.Name, "unknown column %q", ref.Column)
	}
	return c, nil
}

// Qualified is false: single table statements use bare column names.
func (t *Table) Qualified() bool { return false }

// ScopeName names the table in errors.
func (t *Table) ScopeName() string { return t.Name }

// Scope resolves column references for the expression formatter.
type Scope interface {
	Resolve(ref ColumnRef) (*Column, error)
	Qualified() bool
	ScopeName() string
}

var (
	_ Scope = (*Table)(nil)
	_ Scope = (*Query)(nil)
)

func (q *Query) bind(db *Database) error {
	q.database = db
	q.aliases = make(map[string]*QueryTable, len(q.Tables))
	if len(q.Tables) == 0 {
		return dblayer.NewFormatError(q.Name, "query has no tables")
	}
	for i, qt := range q.Tables {
		if err := checkIdentifier(qt.Alias); err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		if _, dup := q.aliases[qt.Alias]; dup {
			return dblayer.NewFormatError(q.Name, "duplicate table alias %q", qt.Alias)
		}
		t := db.Table(qt.Table)
		if t == nil {
			return dblayer.NewFormatError(q.Name, "unknown table %q", qt.Table)
		}
		qt.table = t
		if qt.Referer != "" {
			if i == 0 {
				return dblayer.NewFormatError(q.Name, "first table %q cannot be joined", qt.Alias)
			}
			ref := q.aliases[qt.Referer]
			if ref == nil {
				return dblayer.NewFormatError(q.Name, "alias %q joins unknown or later alias %q", qt.Alias, qt.Referer)
			}
			fk := ref.table.Column(qt.ForeignKey)
			if fk == nil || fk.Kind != KindForeignKey || fk.References != t.Name {
				return dblayer.NewFormatError(q.Name, "%s.%s is not a foreign key to %s", qt.Referer, qt.ForeignKey, t.Name)
			}
			if t.PrimaryKey() == nil {
				return &dblayer.MissingPrimaryKeyError{Table: t.Name, Operation: "join"}
			}
			qt.fk = fk
		}
		q.aliases[qt.Alias] = qt
	}

	names := map[string]bool{}
	for _, r := range append(append([]*Result(nil), q.Results...), q.Conditions...) {
		if err := checkIdentifier(r.Name); err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		if names[r.Name] {
			return dblayer.NewFormatError(q.Name, "duplicate result or condition %q", r.Name)
		}
		names[r.Name] = true
		for _, ref := range ColumnRefs(r.Expr) {
			if _, err := q.Resolve(ref); err != nil {
				return err
			}
		}
		if r.Type == nil {
			ref, ok := r.Expr.(ColumnRef)
			if !ok {
				return dblayer.NewFormatError(q.Name, "computed result %q needs a column type", r.Name)
			}
			c, _ := q.Resolve(ref)
			r.Type = c
		}
	}
	for _, e := range q.GroupBy {
		for _, ref := range ColumnRefs(e) {
			if _, err := q.Resolve(ref); err != nil {
				return err
			}
		}
	}
	return nil
}
