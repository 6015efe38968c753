package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/dblayer/schema"
)

type postgres struct{}

func (postgres) Name() string { return Postgres }

func (postgres) QuoteIdent(name string) string { return quoteIdent(name, '"') }

func (postgres) QuoteLiteral(v any) (string, error) { return quoteLiteral(v, false) }

func (postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgres) ColumnType(c *schema.Column) (string, error) {
	switch c.Kind {
	case schema.KindPrimaryKey:
		if c.Serial {
			return "BIGSERIAL PRIMARY KEY", nil
		}
		return "BIGINT", nil
	case schema.KindForeignKey:
		return "BIGINT", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindInteger:
		return integerType(c.Digits), nil
	case schema.KindFloat:
		if c.Double {
			return "DOUBLE PRECISION", nil
		}
		return "REAL", nil
	case schema.KindDecimal:
		return fmt.Sprintf("NUMERIC(%d, %d)", c.Precision, c.Scale), nil
	case schema.KindText:
		return textType(c.MaxLength), nil
	case schema.KindDate:
		return "DATE", nil
	case schema.KindDatetime:
		return "TIMESTAMP WITHOUT TIME ZONE", nil
	case schema.KindSearchDocument:
		return "tsvector", nil
	case schema.KindUUID:
		return "UUID", nil
	case schema.KindCustom:
		return c.SQLType, nil
	}
	return "", fmt.Errorf("column %q: no %s type for kind %q", c.Name, Postgres, c.Kind)
}

func (postgres) Func(op schema.Op, args []string) (string, bool) {
	switch op {
	case schema.OpContains:
		return fmt.Sprintf("(strpos(%s, %s) > 0)", args[0], args[1]), true
	case schema.OpMatch:
		return fmt.Sprintf("(%s ~ %s)", args[0], args[1]), true
	case schema.OpNotMatch:
		return fmt.Sprintf("(%s !~ %s)", args[0], args[1]), true
	case schema.OpFullTextSearch:
		return fmt.Sprintf("(%s @@ plainto_tsquery(%s))", args[0], args[1]), true
	}
	return "", false
}

func (postgres) ILike(left, right string) string { return left + " ILIKE " + right }

func (postgres) Returning() bool      { return true }
func (postgres) LastInsertID() string { return "" }
func (postgres) Procedures() bool     { return true }

// Truncate clears all tables in one statement; PostgreSQL refuses to
// truncate a referenced table on its own.
func (d postgres) Truncate(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = d.QuoteIdent(t)
	}
	return []string{"TRUNCATE TABLE " + strings.Join(quoted, ", ") + ";"}
}

func integerType(digits int) string {
	switch {
	case digits <= 9:
		return "INTEGER"
	case digits <= 18:
		return "BIGINT"
	}
	return fmt.Sprintf("NUMERIC(%d)", digits)
}

func textType(maxLength int) string {
	if maxLength > 0 {
		return fmt.Sprintf("VARCHAR(%d)", maxLength)
	}
	return "TEXT"
}
