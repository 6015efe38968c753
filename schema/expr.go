package schema

// Expr is a node of an SQL expression tree.
type Expr interface {
	expr()
}

// ColumnRef references a column. Table is the alias inside a query and
// empty inside a single table.
type ColumnRef struct {
	Table  string
	Column string
}

// Literal is a value bound as a statement parameter.
type Literal struct {
	Value any
}

// Raw is SQL text written by the programmer. Each ? in it is a placeholder
// bound to the matching entry of Args.
type Raw struct {
	SQL  string
	Args []any
}

// Var references a server-side variable such as new or old in triggers.
type Var struct {
	Name string
}

// Op names a function or aggregate.
type Op string

const (
	OpNot                Op = "not"
	OpAnd                Op = "and"
	OpOr                 Op = "or"
	OpEqual              Op = "equal"
	OpNotEqual           Op = "not_equal"
	OpLessThan           Op = "less_than"
	OpLessThanOrEqual    Op = "less_than_or_equal"
	OpGreaterThan        Op = "greater_than"
	OpGreaterThanOrEqual Op = "greater_than_or_equal"
	OpIn                 Op = "in"
	OpNotIn              Op = "not_in"
	OpNeg                Op = "neg"
	OpAdd                Op = "add"
	OpSub                Op = "sub"
	OpMul                Op = "mul"
	OpDiv                Op = "div"
	OpConcat             Op = "concat"
	OpLeft               Op = "left"
	OpRight              Op = "right"
	OpSubstring          Op = "substring"
	OpContains           Op = "contains"
	OpLike               Op = "like"
	OpNotLike            Op = "not_like"
	OpMatch              Op = "match"
	OpNotMatch           Op = "not_match"
	OpFullTextSearch     Op = "full_text_search"
	OpCoalesce           Op = "coalesce"
	OpCount              Op = "count"
	OpMin                Op = "min"
	OpMax                Op = "max"
	OpSum                Op = "sum"
	OpAvg                Op = "avg"
)

// Aggregate reports whether the operator folds many rows into one value.
func (o Op) Aggregate() bool {
	switch o {
	case OpCount, OpMin, OpMax, OpSum, OpAvg:
		return true
	}
	return false
}

// Func applies an operator to its arguments.
type Func struct {
	Op   Op
	Args []Expr
}

func (ColumnRef) expr() {}
func (Literal) expr()   {}
func (Raw) expr()       {}
func (Var) expr()       {}
func (Func) expr()      {}

// Col references column of the table aliased as table.
func Col(table, column string) ColumnRef { return ColumnRef{Table: table, Column: column} }

// C references a column of the enclosing table.
func C(column string) ColumnRef { return ColumnRef{Column: column} }

// Lit wraps a literal value.
func Lit(v any) Literal { return Literal{Value: v} }

// SQL wraps trusted SQL text with optional ? parameters.
func SQL(sql string, args ...any) Raw { return Raw{SQL: sql, Args: args} }

// V references a server-side variable.
func V(name string) Var { return Var{Name: name} }

func fn(op Op, args ...Expr) Func { return Func{Op: op, Args: args} }

func Not(a Expr) Func                   { return fn(OpNot, a) }
func And(args ...Expr) Func             { return fn(OpAnd, args...) }
func Or(args ...Expr) Func              { return fn(OpOr, args...) }
func Equal(a, b Expr) Func              { return fn(OpEqual, a, b) }
func NotEqual(a, b Expr) Func           { return fn(OpNotEqual, a, b) }
func LessThan(a, b Expr) Func           { return fn(OpLessThan, a, b) }
func LessThanOrEqual(a, b Expr) Func    { return fn(OpLessThanOrEqual, a, b) }
func GreaterThan(a, b Expr) Func        { return fn(OpGreaterThan, a, b) }
func GreaterThanOrEqual(a, b Expr) Func { return fn(OpGreaterThanOrEqual, a, b) }
func Neg(a Expr) Func                   { return fn(OpNeg, a) }
func Add(args ...Expr) Func             { return fn(OpAdd, args...) }
func Sub(args ...Expr) Func             { return fn(OpSub, args...) }
func Mul(args ...Expr) Func             { return fn(OpMul, args...) }
func Div(args ...Expr) Func             { return fn(OpDiv, args...) }
func Concat(args ...Expr) Func          { return fn(OpConcat, args...) }
func Left(text, n Expr) Func            { return fn(OpLeft, text, n) }
func Right(text, n Expr) Func           { return fn(OpRight, text, n) }
func Contains(text, sub Expr) Func      { return fn(OpContains, text, sub) }
func Like(text, pattern Expr) Func      { return fn(OpLike, text, pattern) }
func NotLike(text, pattern Expr) Func   { return fn(OpNotLike, text, pattern) }
func Match(text, pattern Expr) Func     { return fn(OpMatch, text, pattern) }
func NotMatch(text, pattern Expr) Func  { return fn(OpNotMatch, text, pattern) }
func Coalesce(args ...Expr) Func        { return fn(OpCoalesce, args...) }
func Count(a Expr) Func                 { return fn(OpCount, a) }
func Min(a Expr) Func                   { return fn(OpMin, a) }
func Max(a Expr) Func                   { return fn(OpMax, a) }
func Sum(a Expr) Func                   { return fn(OpSum, a) }
func Avg(a Expr) Func                   { return fn(OpAvg, a) }

// In is true when a equals one of values. An empty list is always false.
func In(a Expr, values ...any) Func { return fn(OpIn, a, Lit(values)) }

// NotIn is true when a equals none of values. An empty list is always true.
func NotIn(a Expr, values ...any) Func { return fn(OpNotIn, a, Lit(values)) }

// Substring extracts text from position, optionally limited to length characters.
func Substring(text, position Expr, length ...Expr) Func {
	return fn(OpSubstring, append([]Expr{text, position}, length...)...)
}

// Fn calls a server function by name, e.g. Fn("lower", C("email")).
func Fn(name string, args ...Expr) Func { return fn(Op(name), args...) }

// FullTextSearch matches a search document against a query built from plain text.
func FullTextSearch(document, query Expr) Func { return fn(OpFullTextSearch, document, query) }

// IsAggregate reports whether the expression contains an aggregate.
func IsAggregate(e Expr) bool {
	f, ok := e.(Func)
	if !ok {
		return false
	}
	if f.Op.Aggregate() {
		return true
	}
	for _, a := range f.Args {
		if IsAggregate(a) {
			return true
		}
	}
	return false
}

// ColumnRefs returns every column referenced by the expression, depth first.
func ColumnRefs(e Expr) []ColumnRef {
	switch n := e.(type) {
	case ColumnRef:
		return []ColumnRef{n}
	case Func:
		var refs []ColumnRef
		for _, a := range n.Args {
			refs = append(refs, ColumnRefs(a)...)
		}
		return refs
	}
	return nil
}
