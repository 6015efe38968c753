package dialect

import (
	"fmt"

	"github.com/ridoystarlord/dblayer/schema"
)

type sqlite struct{}

func (sqlite) Name() string { return SQLite }

func (sqlite) QuoteIdent(name string) string { return quoteIdent(name, '"') }

func (sqlite) QuoteLiteral(v any) (string, error) { return quoteLiteral(v, false) }

func (sqlite) Placeholder(int) string { return "?" }

func (sqlite) ColumnType(c *schema.Column) (string, error) {
	switch c.Kind {
	case schema.KindPrimaryKey:
		if c.Serial {
			return "INTEGER PRIMARY KEY", nil
		}
		return "INTEGER", nil
	case schema.KindForeignKey, schema.KindInteger:
		return "INTEGER", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindFloat:
		return "REAL", nil
	case schema.KindDecimal:
		return fmt.Sprintf("NUMERIC(%d, %d)", c.Precision, c.Scale), nil
	case schema.KindText:
		return textType(c.MaxLength), nil
	case schema.KindDate:
		return "DATE", nil
	case schema.KindDatetime:
		return "DATETIME", nil
	case schema.KindUUID:
		return "TEXT", nil
	case schema.KindCustom:
		return c.SQLType, nil
	}
	return "", fmt.Errorf("column %q: no %s type for kind %q", c.Name, SQLite, c.Kind)
}

func (sqlite) Func(op schema.Op, args []string) (string, bool) {
	switch op {
	case schema.OpContains:
		return fmt.Sprintf("(instr(%s, %s) > 0)", args[0], args[1]), true
	case schema.OpLeft:
		return fmt.Sprintf("substr(%s, 1, %s)", args[0], args[1]), true
	case schema.OpRight:
		return fmt.Sprintf("substr(%s, -(%s))", args[0], args[1]), true
	case schema.OpMatch:
		return fmt.Sprintf("(%s REGEXP %s)", args[0], args[1]), true
	case schema.OpNotMatch:
		return fmt.Sprintf("(%s NOT REGEXP %s)", args[0], args[1]), true
	}
	return "", false
}

func (sqlite) ILike(left, right string) string {
	return "LOWER(" + left + ") LIKE LOWER(" + right + ")"
}

func (sqlite) Returning() bool      { return true }
func (sqlite) LastInsertID() string { return "SELECT last_insert_rowid()" }
func (sqlite) Procedures() bool     { return false }

func (d sqlite) Truncate(tables []string) []string {
	return deleteFrom(d, tables)
}

func deleteFrom(d Dialect, tables []string) []string {
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, "DELETE FROM "+d.QuoteIdent(t)+";")
	}
	return stmts
}
