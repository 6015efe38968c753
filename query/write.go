package query

import (
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

func quoteAll(d dialect.Dialect, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return out
}

// Insert renders an INSERT of columns into t. returning names the column
// read back with RETURNING; it is ignored by dialects without RETURNING.
func Insert(d dialect.Dialect, t *schema.Table, columns []string, returning string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + d.QuoteIdent(t.Name))
	switch {
	case len(columns) > 0:
		marks := strings.Repeat("?, ", len(columns))
		sb.WriteString(" (" + strings.Join(quoteAll(d, columns), ", ") + ") VALUES (" + marks[:len(marks)-2] + ")")
	case d.Name() == dialect.MySQL:
		sb.WriteString(" () VALUES ()")
	default:
		sb.WriteString(" DEFAULT VALUES")
	}
	if returning != "" && d.Returning() {
		sb.WriteString(" RETURNING " + d.QuoteIdent(returning))
	}
	return format.Rebind(d, sb.String())
}

// Update renders an UPDATE of columns in the row of t with the given
// primary key. The key is the last argument.
func Update(d dialect.Dialect, t *schema.Table, columns []string) (string, error) {
	pk := t.PrimaryKey()
	if pk == nil {
		return "", &dblayer.MissingPrimaryKeyError{Table: t.Name, Operation: "update"}
	}
	if len(columns) == 0 {
		return "", dblayer.NewFormatError(t.Name, "update without columns")
	}
	sets := quoteAll(d, columns)
	for i := range sets {
		sets[i] += " = ?"
	}
	sql := "UPDATE " + d.QuoteIdent(t.Name) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + d.QuoteIdent(pk.Name) + " = ?"
	return format.Rebind(d, sql), nil
}

// Delete renders a DELETE of the row of t with the given primary key.
func Delete(d dialect.Dialect, t *schema.Table) (string, error) {
	pk := t.PrimaryKey()
	if pk == nil {
		return "", &dblayer.MissingPrimaryKeyError{Table: t.Name, Operation: "delete"}
	}
	sql := "DELETE FROM " + d.QuoteIdent(t.Name) + " WHERE " + d.QuoteIdent(pk.Name) + " = ?"
	return format.Rebind(d, sql), nil
}

// DeleteWhere renders a DELETE of the rows of t matching filter's where
// conditions. Ordering, limits and having conditions do not apply.
func DeleteWhere(src *Source, t *schema.Table, filter Filter) (string, []any, error) {
	cl, err := src.Conditions.Build(filter.Conditions)
	if err != nil {
		return "", nil, err
	}
	where, err := src.conjunction(cl.Where, filter.Where)
	if err != nil {
		return "", nil, err
	}
	var s statement
	s.add("DELETE FROM " + src.Dialect.QuoteIdent(t.Name))
	s.frag(" WHERE ", where)
	return format.Rebind(src.Dialect, s.sb.String()), s.args, nil
}
