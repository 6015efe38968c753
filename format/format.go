// Package format renders schema expressions into SQL fragments. Values are
// never written into the SQL text of runtime statements: every literal
// becomes a ? placeholder and is appended to the fragment arguments in the
// order its placeholder appears.
package format

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/schema"
)

// Fragment is a piece of SQL and the values bound to its placeholders.
type Fragment struct {
	SQL  string
	Args []any
}

// Join concatenates fragments with sep, keeping argument order.
func Join(sep string, frags ...Fragment) Fragment {
	var out Fragment
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		parts = append(parts, f.SQL)
		out.Args = append(out.Args, f.Args...)
	}
	out.SQL = strings.Join(parts, sep)
	return out
}

// Formatter renders expressions for one table or query scope.
type Formatter struct {
	Dialect dialect.Dialect

	// Scope resolves column references. Expressions without columns may
	// be formatted with a nil scope.
	Scope schema.Scope

	// Inline renders literals as escaped SQL text. Only DDL uses it:
	// CHECK constraints, trigger parameters and generated procedures
	// cannot carry bind parameters.
	Inline bool
}

// Format renders e.
func (f Formatter) Format(e schema.Expr) (Fragment, error) {
	var w writer
	if err := f.write(&w, e); err != nil {
		return Fragment{}, err
	}
	return Fragment{SQL: w.sb.String(), Args: w.args}, nil
}

// Column renders a column reference without resolving anything but the
// quoting; alias may be empty.
func (f Formatter) Column(alias, column string) string {
	if alias == "" {
		return f.Dialect.QuoteIdent(column)
	}
	return f.Dialect.QuoteIdent(alias) + "." + f.Dialect.QuoteIdent(column)
}

type writer struct {
	sb   strings.Builder
	args []any
}

func (w *writer) str(s string) { w.sb.WriteString(s) }

func (f Formatter) scopeName() string {
	if f.Scope == nil {
		return ""
	}
	return f.Scope.ScopeName()
}

func (f Formatter) write(w *writer, e schema.Expr) error {
	switch n := e.(type) {
	case nil:
		return dblayer.NewFormatError(f.scopeName(), "nil expression")
	case schema.ColumnRef:
		if f.Scope == nil {
			return dblayer.NewFormatError("", "column %q referenced outside a table or query", n.Column)
		}
		if _, err := f.Scope.Resolve(n); err != nil {
			return err
		}
		if f.Scope.Qualified() {
			w.str(f.Column(n.Table, n.Column))
		} else {
			w.str(f.Column("", n.Column))
		}
	case schema.Literal:
		return f.literal(w, n.Value)
	case schema.Raw:
		return f.raw(w, n)
	case schema.Var:
		w.str(n.Name)
	case schema.Func:
		return f.function(w, n)
	default:
		return dblayer.NewFormatError(f.scopeName(), "unsupported expression %T", e)
	}
	return nil
}

func (f Formatter) literal(w *writer, v any) error {
	if f.Inline {
		s, err := f.Dialect.QuoteLiteral(v)
		if err != nil {
			return dblayer.NewFormatError(f.scopeName(), "%v", err)
		}
		w.str(s)
		return nil
	}
	w.str("?")
	w.args = append(w.args, v)
	return nil
}

func (f Formatter) raw(w *writer, r schema.Raw) error {
	if n := countPlaceholders(r.SQL); n != len(r.Args) {
		return dblayer.NewFormatError(f.scopeName(), "%q has %d placeholders for %d arguments", r.SQL, n, len(r.Args))
	}
	if !f.Inline {
		w.str(r.SQL)
		w.args = append(w.args, r.Args...)
		return nil
	}
	i := 0
	var err error
	w.str(replacePlaceholders(r.SQL, func() string {
		s, qerr := f.Dialect.QuoteLiteral(r.Args[i])
		if qerr != nil && err == nil {
			err = dblayer.NewFormatError(f.scopeName(), "%v", qerr)
		}
		i++
		return s
	}))
	return err
}

var infix = map[schema.Op]string{
	schema.OpAnd:                " AND ",
	schema.OpOr:                 " OR ",
	schema.OpEqual:              " = ",
	schema.OpNotEqual:           " <> ",
	schema.OpLessThan:           " < ",
	schema.OpLessThanOrEqual:    " <= ",
	schema.OpGreaterThan:        " > ",
	schema.OpGreaterThanOrEqual: " >= ",
	schema.OpAdd:                " + ",
	schema.OpSub:                " - ",
	schema.OpMul:                " * ",
	schema.OpDiv:                " / ",
	schema.OpConcat:             " || ",
	schema.OpLike:               " LIKE ",
	schema.OpNotLike:            " NOT LIKE ",
}

var calls = map[schema.Op]string{
	schema.OpLeft:      "LEFT",
	schema.OpRight:     "RIGHT",
	schema.OpSubstring: "substr",
	schema.OpCoalesce:  "COALESCE",
	schema.OpCount:     "COUNT",
	schema.OpMin:       "MIN",
	schema.OpMax:       "MAX",
	schema.OpSum:       "SUM",
	schema.OpAvg:       "AVG",
}

var arity = map[schema.Op]int{
	schema.OpNot:            1,
	schema.OpNeg:            1,
	schema.OpLeft:           2,
	schema.OpRight:          2,
	schema.OpContains:       2,
	schema.OpMatch:          2,
	schema.OpNotMatch:       2,
	schema.OpFullTextSearch: 2,
	schema.OpCount:          1,
	schema.OpMin:            1,
	schema.OpMax:            1,
	schema.OpSum:            1,
	schema.OpAvg:            1,
}

// dialectOnly ops have no portable spelling.
var dialectOnly = map[schema.Op]bool{
	schema.OpContains:       true,
	schema.OpMatch:          true,
	schema.OpNotMatch:       true,
	schema.OpFullTextSearch: true,
}

func (f Formatter) function(w *writer, fn schema.Func) error {
	switch fn.Op {
	case schema.OpIn, schema.OpNotIn:
		return f.in(w, fn)
	case schema.OpEqual, schema.OpNotEqual:
		if len(fn.Args) == 2 && isNull(fn.Args[1]) {
			if err := f.write(w, fn.Args[0]); err != nil {
				return err
			}
			if fn.Op == schema.OpEqual {
				w.str(" IS NULL")
			} else {
				w.str(" IS NOT NULL")
			}
			return nil
		}
	case schema.OpAnd, schema.OpOr:
		if len(fn.Args) == 0 {
			if fn.Op == schema.OpAnd {
				w.str("TRUE")
			} else {
				w.str("FALSE")
			}
			return nil
		}
	}

	if n, ok := arity[fn.Op]; ok && len(fn.Args) != n {
		return dblayer.NewFormatError(f.scopeName(), "%s takes %d arguments, got %d", fn.Op, n, len(fn.Args))
	}
	if fn.Op == schema.OpSubstring && len(fn.Args) != 2 && len(fn.Args) != 3 {
		return dblayer.NewFormatError(f.scopeName(), "substring takes 2 or 3 arguments, got %d", len(fn.Args))
	}

	args := make([]Fragment, len(fn.Args))
	for i, a := range fn.Args {
		frag, err := f.Format(a)
		if err != nil {
			return err
		}
		args[i] = frag
	}
	sqls := make([]string, len(args))
	for i, a := range args {
		sqls[i] = a.SQL
		w.args = append(w.args, a.Args...)
	}

	if s, ok := f.Dialect.Func(fn.Op, sqls); ok {
		w.str(s)
		return nil
	}
	if dialectOnly[fn.Op] {
		return dblayer.NewFormatError(f.scopeName(), "%s is not supported by %s", fn.Op, f.Dialect.Name())
	}
	if sep, ok := infix[fn.Op]; ok {
		if len(sqls) == 1 && (fn.Op == schema.OpAnd || fn.Op == schema.OpOr) {
			w.str("(" + sqls[0] + ")")
			return nil
		}
		if len(sqls) < 2 {
			return dblayer.NewFormatError(f.scopeName(), "%s needs at least two arguments", fn.Op)
		}
		w.str("(" + strings.Join(sqls, sep) + ")")
		return nil
	}
	switch fn.Op {
	case schema.OpNot:
		w.str("NOT (" + sqls[0] + ")")
		return nil
	case schema.OpNeg:
		w.str("(-" + sqls[0] + ")")
		return nil
	}
	name, ok := calls[fn.Op]
	if !ok {
		// Fn: server functions called by name.
		name = string(fn.Op)
		if !isFunctionName(name) {
			return dblayer.NewFormatError(f.scopeName(), "invalid function name %q", name)
		}
	}
	w.str(name + "(" + strings.Join(sqls, ", ") + ")")
	return nil
}

func (f Formatter) in(w *writer, fn schema.Func) error {
	if len(fn.Args) != 2 {
		return dblayer.NewFormatError(f.scopeName(), "%s takes an expression and a list", fn.Op)
	}
	lit, ok := fn.Args[1].(schema.Literal)
	if !ok {
		return dblayer.NewFormatError(f.scopeName(), "%s needs a literal list", fn.Op)
	}
	values, err := listValues(lit.Value)
	if err != nil {
		return dblayer.NewFormatError(f.scopeName(), "%v", err)
	}
	if len(values) == 0 {
		if fn.Op == schema.OpIn {
			w.str("FALSE")
		} else {
			w.str("TRUE")
		}
		return nil
	}
	if err := f.write(w, fn.Args[0]); err != nil {
		return err
	}
	if fn.Op == schema.OpIn {
		w.str(" IN (")
	} else {
		w.str(" NOT IN (")
	}
	for i, v := range values {
		if i > 0 {
			w.str(", ")
		}
		if err := f.literal(w, v); err != nil {
			return err
		}
	}
	w.str(")")
	return nil
}

func isNull(e schema.Expr) bool {
	lit, ok := e.(schema.Literal)
	return ok && lit.Value == nil
}

func isFunctionName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// listValues flattens any slice or array into its elements. []byte is a
// single text value, not a list.
func listValues(v any) ([]any, error) {
	if vs, ok := v.([]any); ok {
		return vs, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, fmt.Errorf("expected a list, got []byte")
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
