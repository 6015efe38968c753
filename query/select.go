// Package query assembles SELECT, COUNT, INSERT, UPDATE and DELETE
// statements from compiled tables and queries. Every function here is
// pure: it only reads the compiled source and its arguments.
package query

import (
	"strconv"
	"strings"

	"github.com/ridoystarlord/dblayer/condition"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// Source is a table or query compiled for SELECT statements.
type Source struct {
	Name    string
	Dialect dialect.Dialect

	// Scope formats the literal where and having expressions of filters.
	Scope schema.Scope

	From    string
	Fields  format.Fragment
	Columns []string
	GroupBy format.Fragment

	Conditions   *condition.Compiled
	DefaultOrder []string

	// Aggregated sources return one row per group; their counts are
	// taken over a subquery.
	Aggregated bool
}

// Filter narrows a SELECT. The zero value selects everything in the
// default order.
type Filter struct {
	// Where and Having are ANDed with the keyword conditions.
	Where  schema.Expr
	Having schema.Expr

	// Conditions are keyword conditions such as {"email__ilike": "%@x"}.
	Conditions map[string]any

	OrderBy []string
	Limit   int
	Offset  int
}

// TableSource compiles a table.
func TableSource(t *schema.Table, d dialect.Dialect) (*Source, error) {
	c, err := condition.CompileTable(t, d)
	if err != nil {
		return nil, err
	}
	src := &Source{
		Name:       t.Name,
		Dialect:    d,
		Scope:      t,
		From:       d.QuoteIdent(t.Name),
		Conditions: c,
	}
	fields := make([]string, 0, len(t.Columns))
	for _, col := range t.AccessibleColumns() {
		fields = append(fields, d.QuoteIdent(col.Name))
		src.Columns = append(src.Columns, col.Name)
	}
	src.Fields = format.Fragment{SQL: strings.Join(fields, ", ")}
	return src, nil
}

// QuerySource compiles a query.
func QuerySource(q *schema.Query, d dialect.Dialect) (*Source, error) {
	c, err := condition.CompileQuery(q, d)
	if err != nil {
		return nil, err
	}
	src := &Source{
		Name:         q.Name,
		Dialect:      d,
		Scope:        q,
		From:         FormatFrom(d, FromItems(q)),
		Conditions:   c,
		DefaultOrder: q.OrderBy,
		Aggregated:   len(q.GroupBy) > 0,
	}
	f := format.Formatter{Dialect: d, Scope: q}
	fields := make([]format.Fragment, 0, len(q.Results))
	for _, r := range q.Results {
		frag, err := f.Format(r.Expr)
		if err != nil {
			return nil, err
		}
		frag.SQL += " AS " + d.QuoteIdent(r.Name)
		fields = append(fields, frag)
		src.Columns = append(src.Columns, r.Name)
		if schema.IsAggregate(r.Expr) {
			src.Aggregated = true
		}
	}
	src.Fields = format.Join(", ", fields...)
	groups := make([]format.Fragment, 0, len(q.GroupBy))
	for _, e := range q.GroupBy {
		frag, err := f.Format(e)
		if err != nil {
			return nil, err
		}
		groups = append(groups, frag)
	}
	src.GroupBy = format.Join(", ", groups...)
	return src, nil
}

// statement accumulates SQL text and its arguments clause by clause.
type statement struct {
	sb   strings.Builder
	args []any
}

func (s *statement) add(sql string, args ...any) {
	s.sb.WriteString(sql)
	s.args = append(s.args, args...)
}

func (s *statement) frag(prefix string, f format.Fragment) {
	if f.SQL == "" {
		return
	}
	s.add(prefix+f.SQL, f.Args...)
}

// conjunction ANDs keyword clauses with the parenthesised literal
// expression.
func (src *Source) conjunction(clauses []format.Fragment, literal schema.Expr) (format.Fragment, error) {
	if literal != nil {
		f := format.Formatter{Dialect: src.Dialect, Scope: src.Scope}
		frag, err := f.Format(literal)
		if err != nil {
			return format.Fragment{}, err
		}
		frag.SQL = "(" + frag.SQL + ")"
		clauses = append(clauses, frag)
	}
	return format.Join(" AND ", clauses...), nil
}

// body writes everything after the field list up to HAVING.
func (src *Source) body(s *statement, filter Filter) error {
	cl, err := src.Conditions.Build(filter.Conditions)
	if err != nil {
		return err
	}
	where, err := src.conjunction(cl.Where, filter.Where)
	if err != nil {
		return err
	}
	having, err := src.conjunction(cl.Having, filter.Having)
	if err != nil {
		return err
	}
	s.add(" FROM " + src.From)
	s.frag(" WHERE ", where)
	s.frag(" GROUP BY ", src.GroupBy)
	s.frag(" HAVING ", having)
	return nil
}

func (src *Source) limit(s *statement, limit, offset int) {
	if limit > 0 {
		s.add(" LIMIT " + strconv.Itoa(limit))
	} else if offset > 0 {
		switch src.Dialect.Name() {
		case dialect.SQLite:
			s.add(" LIMIT -1")
		case dialect.MySQL:
			s.add(" LIMIT 18446744073709551615")
		}
	}
	if offset > 0 {
		s.add(" OFFSET " + strconv.Itoa(offset))
	}
}

// Format renders SELECT <fields> FROM <from> [WHERE] [GROUP BY] [HAVING]
// [ORDER BY] [LIMIT] [OFFSET]. Without an explicit order the source's
// default order applies.
func Format(src *Source, filter Filter) (string, []any, error) {
	var s statement
	s.frag("SELECT ", src.Fields)
	if err := src.body(&s, filter); err != nil {
		return "", nil, err
	}
	keys := filter.OrderBy
	if len(keys) == 0 {
		keys = src.DefaultOrder
	}
	order, err := src.Conditions.OrderBy.Resolve(keys)
	if err != nil {
		return "", nil, err
	}
	s.frag(" ORDER BY ", order)
	src.limit(&s, filter.Limit, filter.Offset)
	return format.Rebind(src.Dialect, s.sb.String()), s.args, nil
}

// FormatOne renders a single record lookup: Format with LIMIT 1.
func FormatOne(src *Source, filter Filter) (string, []any, error) {
	filter.Limit = 1
	return Format(src, filter)
}

// FormatCount renders the row count of Format(src, filter). ORDER BY is
// accepted and ignored. Grouped sources and limited windows are counted
// over a subquery so the count always equals the number of listed rows.
func FormatCount(src *Source, filter Filter) (string, []any, error) {
	var s statement
	wrap := src.Aggregated || filter.Limit > 0 || filter.Offset > 0 || filter.Having != nil
	if !wrap {
		for name := range filter.Conditions {
			if _, ok := src.Conditions.Having.Lookup(name); ok {
				wrap = true
				break
			}
		}
	}
	if !wrap {
		s.add("SELECT COUNT(*)")
		if err := src.body(&s, filter); err != nil {
			return "", nil, err
		}
		return format.Rebind(src.Dialect, s.sb.String()), s.args, nil
	}
	s.frag("SELECT COUNT(*) FROM (SELECT ", src.Fields)
	if err := src.body(&s, filter); err != nil {
		return "", nil, err
	}
	src.limit(&s, filter.Limit, filter.Offset)
	s.add(") AS " + src.Dialect.QuoteIdent("counted"))
	return format.Rebind(src.Dialect, s.sb.String()), s.args, nil
}
