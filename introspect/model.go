package introspect

import (
	"strings"

	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// Tables converts introspected tables into model tables, referenced
// tables first. Types without a model kind become custom columns.
func Tables(existing []ExistingTable) []*schema.Table {
	tables := make([]*schema.Table, 0, len(existing))
	for i := range existing {
		tables = append(tables, Table(&existing[i]))
	}
	return schema.SortByReferences(tables)
}

// Table converts one introspected table.
func Table(et *ExistingTable) *schema.Table {
	t := schema.NewTable(et.TableName)
	for _, ec := range et.Columns {
		t.Columns = append(t.Columns, column(et, ec))
	}
	for _, idx := range et.Indexes {
		if idx.IsPrimary {
			continue
		}
		if name, ok := strings.CutPrefix(idx.IndexName, et.TableName+"__"); ok && idx.IsUnique {
			t.Unique(name, idx.Columns...)
			continue
		}
		if idx.IndexType != "btree" {
			// full-text gin indexes are derived from search documents
			continue
		}
		name := strings.TrimPrefix(idx.IndexName, et.TableName+"_")
		if idx.IsUnique {
			t.UniqueIndex(name, idx.Columns...)
		} else {
			t.Index(name, idx.Columns...)
		}
	}
	return t
}

func column(et *ExistingTable, ec ExistingColumn) *schema.Column {
	c := &schema.Column{Name: ec.ColumnName, Null: ec.IsNullable}
	switch ec.DataType {
	case "smallint":
		c.Kind, c.Digits = schema.KindInteger, 4
	case "integer":
		c.Kind, c.Digits = schema.KindInteger, 9
	case "bigint":
		c.Kind, c.Digits = schema.KindInteger, 18
	case "boolean":
		c.Kind = schema.KindBoolean
	case "real":
		c.Kind = schema.KindFloat
	case "double precision":
		c.Kind, c.Double = schema.KindFloat, true
	case "numeric":
		c.Kind = schema.KindDecimal
		if ec.NumericPrecision != nil {
			c.Precision = int(*ec.NumericPrecision)
		}
		if ec.NumericScale != nil {
			c.Scale = int(*ec.NumericScale)
		}
	case "character varying", "character", "text":
		c.Kind = schema.KindText
		if ec.MaxLength != nil {
			c.MaxLength = int(*ec.MaxLength)
		}
	case "date":
		c.Kind = schema.KindDate
	case "timestamp without time zone":
		c.Kind = schema.KindDatetime
	case "uuid":
		c.Kind = schema.KindUUID
	default:
		c.Kind, c.SQLType = schema.KindCustom, ec.DataType
	}

	if ec.IsPrimaryKey && c.Kind == schema.KindInteger {
		c.Kind = schema.KindPrimaryKey
		c.Serial = ec.ColumnDefault != nil && strings.HasPrefix(*ec.ColumnDefault, "nextval(")
		return c
	}
	if fk := et.ForeignKey(ec.ColumnName); fk != nil && c.Kind == schema.KindInteger {
		c.Kind = schema.KindForeignKey
		c.References = fk.ReferencesTable
		c.OnDelete = action(fk.OnDelete)
		c.OnUpdate = action(fk.OnUpdate)
	}
	if ec.ColumnDefault != nil {
		setDefault(c, *ec.ColumnDefault)
	}
	return c
}

func action(rule string) string {
	if rule == "NO ACTION" {
		return ""
	}
	return strings.ToLower(rule)
}

// setDefault keeps literal defaults as values and everything else, such
// as now(), as a server-side expression.
func setDefault(c *schema.Column, def string) {
	text := def
	if i := strings.LastIndex(text, "::"); i > 0 {
		text = text[:i]
	}
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		text = strings.ReplaceAll(text[1:len(text)-1], "''", "'")
	} else if strings.ContainsAny(text, "()") {
		c.CustomDefault = def
		return
	}
	if v, err := format.Parse(c, text); err == nil && v != nil {
		c.Default = v
		return
	}
	c.CustomDefault = def
}
