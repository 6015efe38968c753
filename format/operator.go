package format

import (
	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/schema"
)

// Condition suffixes. The vocabulary is closed.
const (
	SuffixNone    = ""
	SuffixEq      = "__eq"
	SuffixNe      = "__ne"
	SuffixLt      = "__lt"
	SuffixLe      = "__le"
	SuffixGt      = "__gt"
	SuffixGe      = "__ge"
	SuffixIn      = "__in"
	SuffixNotIn   = "__notin"
	SuffixIsNull  = "__isnull"
	SuffixNotNull = "__notnull"
	SuffixLike    = "__like"
	SuffixILike   = "__ilike"
)

// Operator renders one condition clause. expr is the already formatted
// left side; its arguments stay in front of the value arguments.
type Operator func(d dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error)

var operators = map[string]Operator{
	SuffixNone:    Eq,
	SuffixEq:      Eq,
	SuffixNe:      Ne,
	SuffixLt:      compare(" < "),
	SuffixLe:      compare(" <= "),
	SuffixGt:      compare(" > "),
	SuffixGe:      compare(" >= "),
	SuffixIn:      In,
	SuffixNotIn:   NotIn,
	SuffixIsNull:  IsNull,
	SuffixNotNull: NotNull,
	SuffixLike:    Like,
	SuffixILike:   ILike,
}

// OperatorFor returns the operator of a condition suffix.
func OperatorFor(suffix string) (Operator, bool) {
	op, ok := operators[suffix]
	return op, ok
}

func clause(expr Fragment, sql string, args ...any) Fragment {
	return Fragment{
		SQL:  expr.SQL + sql,
		Args: append(append([]any(nil), expr.Args...), args...),
	}
}

// Eq compares with a bound value. A nil value, or a nil pointer, gives
// IS NULL.
func Eq(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	v, err := Bind(typ, value)
	if err != nil {
		return Fragment{}, err
	}
	if v == nil {
		return clause(expr, " IS NULL"), nil
	}
	return clause(expr, " = ?", v), nil
}

// Ne is the negation of Eq: nil gives IS NOT NULL.
func Ne(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	v, err := Bind(typ, value)
	if err != nil {
		return Fragment{}, err
	}
	if v == nil {
		return clause(expr, " IS NOT NULL"), nil
	}
	return clause(expr, " <> ?", v), nil
}

func compare(op string) Operator {
	return func(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
		if value == nil {
			return Fragment{}, dblayer.NewFormatError(columnName(typ), "cannot compare with NULL using%s", op)
		}
		v, err := Bind(typ, value)
		if err != nil {
			return Fragment{}, err
		}
		return clause(expr, op+"?", v), nil
	}
}

func in(expr Fragment, typ *schema.Column, value any, not bool) (Fragment, error) {
	values, err := listValues(value)
	if err != nil {
		return Fragment{}, dblayer.NewFormatError(columnName(typ), "%v", err)
	}
	if len(values) == 0 {
		if not {
			return Fragment{SQL: "TRUE"}, nil
		}
		return Fragment{SQL: "FALSE"}, nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		if args[i], err = Bind(typ, v); err != nil {
			return Fragment{}, err
		}
	}
	sql := " IN ("
	if not {
		sql = " NOT IN ("
	}
	for i := range values {
		if i > 0 {
			sql += ", "
		}
		sql += "?"
	}
	return clause(expr, sql+")", args...), nil
}

// In expands to one placeholder per element; an empty list matches nothing.
func In(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	return in(expr, typ, value, false)
}

// NotIn expands like In; an empty list matches everything.
func NotIn(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	return in(expr, typ, value, true)
}

func nullTest(expr Fragment, typ *schema.Column, value any, wantNull bool) (Fragment, error) {
	b, ok := value.(bool)
	if !ok {
		return Fragment{}, dblayer.NewFormatError(columnName(typ), "null test needs a bool, got %T", value)
	}
	if b == wantNull {
		return clause(expr, " IS NULL"), nil
	}
	return clause(expr, " IS NOT NULL"), nil
}

// IsNull takes a bool: true tests IS NULL, false IS NOT NULL.
func IsNull(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	return nullTest(expr, typ, value, true)
}

// NotNull is IsNull with the bool inverted.
func NotNull(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	return nullTest(expr, typ, value, false)
}

func pattern(typ *schema.Column, value any) (string, error) {
	switch x := value.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return "", dblayer.NewFormatError(columnName(typ), "pattern must be text, got %T", value)
}

// Like matches a text pattern case sensitively.
func Like(_ dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	p, err := pattern(typ, value)
	if err != nil {
		return Fragment{}, err
	}
	return clause(expr, " LIKE ?", p), nil
}

// ILike matches case insensitively in the dialect's own way.
func ILike(d dialect.Dialect, expr Fragment, typ *schema.Column, value any) (Fragment, error) {
	p, err := pattern(typ, value)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{
		SQL:  d.ILike(expr.SQL, "?"),
		Args: append(append([]any(nil), expr.Args...), p),
	}, nil
}
