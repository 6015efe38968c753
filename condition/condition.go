// Package condition compiles the keyword conditions and sort keys a table
// or query accepts. Compilation happens once; the compiled maps are read
// only afterwards and may be shared between goroutines.
package condition

import (
	"sort"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// Entry is one accepted argument name, e.g. email__ilike.
type Entry struct {
	Name   string
	Field  string // column or result name without the suffix
	Suffix string
	Expr   format.Fragment
	Type   *schema.Column
	Op     format.Operator
}

// Map holds the entries of one clause (WHERE or HAVING) in declaration
// order.
type Map struct {
	Source  string
	Entries []*Entry

	dialect dialect.Dialect
	index   map[string]*Entry
}

func newMap(source string, d dialect.Dialect) *Map {
	return &Map{Source: source, dialect: d, index: map[string]*Entry{}}
}

// Lookup returns the entry accepting name.
func (m *Map) Lookup(name string) (*Entry, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.index[name]
	return e, ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// Names lists the accepted argument names in declaration order.
func (m *Map) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Name
	}
	return names
}

func (m *Map) add(field string, expr format.Fragment, typ *schema.Column, nullable bool) error {
	for _, suffix := range Suffixes(typ.Kind, nullable) {
		op, _ := format.OperatorFor(suffix)
		e := &Entry{
			Name:   field + suffix,
			Field:  field,
			Suffix: suffix,
			Expr:   expr,
			Type:   typ,
			Op:     op,
		}
		if _, dup := m.index[e.Name]; dup {
			return dblayer.NewFormatError(m.Source, "condition %q declared twice", e.Name)
		}
		m.index[e.Name] = e
		m.Entries = append(m.Entries, e)
	}
	return nil
}

// Suffixes returns the condition suffixes a value of kind accepts, in the
// order entries are emitted.
func Suffixes(kind schema.ColumnKind, nullable bool) []string {
	s := []string{
		format.SuffixNone,
		format.SuffixEq,
		format.SuffixNe,
		format.SuffixIn,
		format.SuffixNotIn,
	}
	if kind.Ordered() {
		s = append(s, format.SuffixLt, format.SuffixLe, format.SuffixGt, format.SuffixGe)
	}
	if nullable {
		s = append(s, format.SuffixIsNull, format.SuffixNotNull)
	}
	if kind.IsText() {
		s = append(s, format.SuffixLike, format.SuffixILike)
	}
	return s
}

// Compiled is everything a table or query accepts at call time.
type Compiled struct {
	Source  string
	Dialect dialect.Dialect
	Where   *Map
	Having  *Map
	OrderBy *OrderByMap
}

// CompileTable compiles the conditions and sort keys of a table. Every
// accessible column is accepted.
func CompileTable(t *schema.Table, d dialect.Dialect) (*Compiled, error) {
	c := &Compiled{
		Source:  t.Name,
		Dialect: d,
		Where:   newMap(t.Name, d),
		Having:  newMap(t.Name, d),
		OrderBy: newOrderByMap(t.Name),
	}
	f := format.Formatter{Dialect: d, Scope: t}
	for _, col := range t.AccessibleColumns() {
		expr, err := f.Format(schema.C(col.Name))
		if err != nil {
			return nil, err
		}
		if err := c.Where.add(col.Name, expr, col, col.Null); err != nil {
			return nil, err
		}
		c.OrderBy.add(col.Name, expr)
	}
	return c, nil
}

// CompileQuery compiles the conditions and sort keys of a query. Results
// holding aggregates and having conditions go to the HAVING map; all other
// results and conditions go to WHERE. Every result is sortable, conditions
// only when marked so. The default order is checked here.
func CompileQuery(q *schema.Query, d dialect.Dialect) (*Compiled, error) {
	c := &Compiled{
		Source:  q.Name,
		Dialect: d,
		Where:   newMap(q.Name, d),
		Having:  newMap(q.Name, d),
		OrderBy: newOrderByMap(q.Name),
	}
	f := format.Formatter{Dialect: d, Scope: q}
	add := func(r *schema.Result, sortable bool) error {
		expr, err := f.Format(r.Expr)
		if err != nil {
			return err
		}
		m := c.Where
		if r.AfterGroupBy() {
			m = c.Having
		}
		if err := m.add(r.Name, expr, r.Type, nullable(q, r)); err != nil {
			return err
		}
		if sortable {
			c.OrderBy.add(r.Name, expr)
		}
		return nil
	}
	for _, r := range q.Results {
		if err := add(r, true); err != nil {
			return nil, err
		}
	}
	for _, r := range q.Conditions {
		if err := add(r, r.Sortable); err != nil {
			return nil, err
		}
	}
	if _, err := c.OrderBy.Resolve(q.OrderBy); err != nil {
		return nil, err
	}
	return c, nil
}

// nullable is true for nullable columns and for any column of a table
// reached through a LEFT JOIN.
func nullable(q *schema.Query, r *schema.Result) bool {
	if r.Type.Null {
		return true
	}
	ref, ok := r.Expr.(schema.ColumnRef)
	if !ok {
		return false
	}
	qt := q.Alias(ref.Table)
	return qt != nil && qt.JoinType() == schema.LeftJoin
}

// Clauses are the compiled runtime conditions of one call, in declaration
// order.
type Clauses struct {
	Where  []format.Fragment
	Having []format.Fragment
}

// Build looks up every runtime condition in the compiled maps. Unknown
// names fail with UnknownConditionError before anything is rendered.
func Build(where, having *Map, runtime map[string]any) (Clauses, error) {
	var out Clauses
	if len(runtime) == 0 {
		return out, nil
	}
	names := make([]string, 0, len(runtime))
	for name := range runtime {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, inWhere := where.Lookup(name)
		_, inHaving := having.Lookup(name)
		if !inWhere && !inHaving {
			source := ""
			if where != nil {
				source = where.Source
			}
			return out, &dblayer.UnknownConditionError{Source: source, Name: name, Value: runtime[name]}
		}
	}

	var err error
	if out.Where, err = apply(where, runtime); err != nil {
		return Clauses{}, err
	}
	if out.Having, err = apply(having, runtime); err != nil {
		return Clauses{}, err
	}
	return out, nil
}

func apply(m *Map, runtime map[string]any) ([]format.Fragment, error) {
	if m == nil {
		return nil, nil
	}
	var out []format.Fragment
	for _, e := range m.Entries {
		v, ok := runtime[e.Name]
		if !ok {
			continue
		}
		frag, err := e.Op(m.dialect, e.Expr, e.Type, v)
		if err != nil {
			return nil, err
		}
		out = append(out, frag)
	}
	return out, nil
}

// Build applies runtime conditions to the compiled maps.
func (c *Compiled) Build(runtime map[string]any) (Clauses, error) {
	return Build(c.Where, c.Having, runtime)
}
