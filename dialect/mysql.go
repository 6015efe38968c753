package dialect

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/dblayer/schema"
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return MySQL }

func (mysqlDialect) QuoteIdent(name string) string { return quoteIdent(name, '`') }

func (mysqlDialect) QuoteLiteral(v any) (string, error) { return quoteLiteral(v, true) }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) ColumnType(c *schema.Column) (string, error) {
	switch c.Kind {
	case schema.KindPrimaryKey:
		if c.Serial {
			return "BIGINT AUTO_INCREMENT PRIMARY KEY", nil
		}
		return "BIGINT", nil
	case schema.KindForeignKey:
		return "BIGINT", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindInteger:
		t := integerType(c.Digits)
		if strings.HasPrefix(t, "NUMERIC") {
			t = fmt.Sprintf("DECIMAL(%d)", c.Digits)
		}
		return t, nil
	case schema.KindFloat:
		if c.Double {
			return "DOUBLE", nil
		}
		return "FLOAT", nil
	case schema.KindDecimal:
		return fmt.Sprintf("DECIMAL(%d, %d)", c.Precision, c.Scale), nil
	case schema.KindText:
		return textType(c.MaxLength), nil
	case schema.KindDate:
		return "DATE", nil
	case schema.KindDatetime:
		return "DATETIME(6)", nil
	case schema.KindUUID:
		return "CHAR(36)", nil
	case schema.KindCustom:
		return c.SQLType, nil
	}
	return "", fmt.Errorf("column %q: no %s type for kind %q", c.Name, MySQL, c.Kind)
}

func (mysqlDialect) Func(op schema.Op, args []string) (string, bool) {
	switch op {
	case schema.OpConcat:
		return "CONCAT(" + strings.Join(args, ", ") + ")", true
	case schema.OpContains:
		return fmt.Sprintf("(INSTR(%s, %s) > 0)", args[0], args[1]), true
	case schema.OpMatch:
		return fmt.Sprintf("(%s REGEXP %s)", args[0], args[1]), true
	case schema.OpNotMatch:
		return fmt.Sprintf("(%s NOT REGEXP %s)", args[0], args[1]), true
	}
	return "", false
}

func (mysqlDialect) ILike(left, right string) string {
	return "LOWER(" + left + ") LIKE LOWER(" + right + ")"
}

func (mysqlDialect) Returning() bool      { return false }
func (mysqlDialect) LastInsertID() string { return "SELECT LAST_INSERT_ID()" }
func (mysqlDialect) Procedures() bool     { return false }

func (d mysqlDialect) Truncate(tables []string) []string {
	return deleteFrom(d, tables)
}
