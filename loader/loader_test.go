package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/schema"
)

const schemaYAML = `
name: shop
tables:
  - name: customer
    columns:
      - {name: id, type: primary_key, serial: true}
      - {name: email, type: text, max_length: 255}
      - {name: active, type: boolean, default: true}
      - {name: created, type: datetime, custom_default: "now()"}
    unique:
      - {name: email, columns: [email]}
    checks:
      - {name: email_has_at, sql: "email LIKE '%@%'"}
  - name: purchase
    columns:
      - {name: id, type: primary_key, serial: true}
      - {name: customer_id, type: foreign_key, references: customer, on_delete: cascade}
      - {name: total, type: decimal, precision: 10, scale: 2}
      - {name: note, type: text, nullable: true}
    indexes:
      - {name: customer, columns: [customer_id]}
queries:
  - name: spending
    from:
      - {alias: p, table: purchase}
      - {alias: c, table: customer, referer: p, foreign_key: customer_id}
    select:
      - {name: email, expr: c.email}
      - name: spent
        expr: {fn: sum, args: [p.total]}
        type: {type: decimal, precision: 12, scale: 2}
    where:
      - {name: note, expr: p.note}
    group_by: [c.email]
    order_by: ["-spent"]
`

func TestParseYAML(t *testing.T) {
	db, err := ParseYAML([]byte(schemaYAML))
	require.NoError(t, err)
	assert.Equal(t, "shop", db.Name)
	require.Len(t, db.Tables, 2)

	customer := db.Table("customer")
	require.NotNil(t, customer)
	assert.True(t, customer.PrimaryKey().Serial)
	assert.Equal(t, true, customer.Column("active").Default)
	assert.Equal(t, "now()", customer.Column("created").CustomDefault)

	purchase := db.Table("purchase")
	fk := purchase.Column("customer_id")
	assert.Equal(t, customer, fk.Referenced())
	assert.Equal(t, "cascade", fk.OnDelete)
	assert.True(t, purchase.Column("note").Null)

	q := db.Query("spending")
	require.NotNil(t, q)
	require.Len(t, q.Results, 2)
	assert.Equal(t, schema.KindText, q.Results[0].Type.Kind)
	assert.Equal(t, schema.KindDecimal, q.Results[1].Type.Kind)

	stmts, err := generator.New(dialect.MustGet(dialect.Postgres)).CreateTable(customer)
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `CONSTRAINT "customer__email_has_at" CHECK (email LIKE '%@%')`)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown reference", "tables:\n  - name: a\n    columns:\n      - {name: b_id, type: foreign_key, references: b}\n"},
		{"bad default", "tables:\n  - name: a\n    columns:\n      - {name: n, type: integer, default: lots}\n"},
		{"bad identifier", "tables:\n  - name: a-b\n    columns:\n      - {name: id, type: primary_key}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, dblayer.IsFormat(err))
		})
	}

	_, err := ParseYAML([]byte("tables: ["))
	assert.Error(t, err)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalTablesRoundTrip(t *testing.T) {
	db, err := ParseYAML([]byte(schemaYAML))
	require.NoError(t, err)

	out, err := MarshalTables("shop", db.Tables)
	require.NoError(t, err)

	again, err := ParseYAML(out)
	require.NoError(t, err)
	require.Len(t, again.Tables, 2)
	assert.Equal(t, db.Table("purchase").Column("total").Precision, again.Table("purchase").Column("total").Precision)
	assert.Len(t, again.Table("customer").Constraints, 2)
	assert.Len(t, again.Table("purchase").Indexes, 1)
	assert.Contains(t, string(out), "nullable: true")
	assert.True(t, again.Table("purchase").Column("note").Null)
	assert.False(t, again.Table("purchase").Column("total").Null)
}

func TestParseYAMLNullable(t *testing.T) {
	db, err := ParseYAML([]byte("tables:\n  - name: a\n    columns:\n" +
		"      - {name: id, type: primary_key}\n" +
		"      - {name: note, type: text, nullable: true}\n" +
		"      - {name: title, type: text}\n"))
	require.NoError(t, err)
	assert.True(t, db.Table("a").Column("note").Null)
	assert.False(t, db.Table("a").Column("title").Null)
}

const modelsSource = "package models\n\n" +
	"import \"time\"\n\n" +
	"type OrderItem struct {\n" +
	"\tID      int64  `dblayer:\"serial\"`\n" +
	"\tOrderID int64  `dblayer:\"fk:orders:cascade\"`\n" +
	"\tSKU     string `dblayer:\"column:sku;max_length:32;index\"`\n" +
	"\tNote    *string `dblayer:\"\"`\n" +
	"\tscratch int\n" +
	"\tCache   string `dblayer:\"-\"`\n" +
	"}\n\n" +
	"type Order struct {\n" +
	"\tID       int64     `dblayer:\"serial\"`\n" +
	"\tEmail    string    `dblayer:\"unique\"`\n" +
	"\tPaid     bool      `dblayer:\"default:false\"`\n" +
	"\tPlacedAt time.Time `dblayer:\"default:now()\"`\n" +
	"}\n\n" +
	"type helper struct {\n" +
	"\tName string\n" +
	"}\n"

func TestLoadTags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.go"), []byte(modelsSource), 0o644))

	db, err := LoadTags(dir, "shop")
	require.NoError(t, err)
	require.Len(t, db.Tables, 2)
	assert.Equal(t, "orders", db.Tables[0].Name, "referenced table first")
	assert.Equal(t, "order_items", db.Tables[1].Name)

	items := db.Table("order_items")
	var names []string
	for _, c := range items.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "order_id", "sku", "note"}, names)
	assert.Equal(t, schema.KindForeignKey, items.Column("order_id").Kind)
	assert.Equal(t, "cascade", items.Column("order_id").OnDelete)
	assert.Equal(t, 32, items.Column("sku").MaxLength)
	assert.True(t, items.Column("note").Null)
	require.Len(t, items.Indexes, 1)

	orders := db.Table("orders")
	assert.Equal(t, false, orders.Column("paid").Default)
	assert.Equal(t, "now()", orders.Column("placed_at").CustomDefault)
	assert.Equal(t, schema.KindDatetime, orders.Column("placed_at").Kind)
	require.Len(t, orders.Constraints, 1)
	assert.Equal(t, schema.UniqueConstraint, orders.Constraints[0].Kind)
}

func TestLoadTagsMissingDir(t *testing.T) {
	_, err := LoadTags(filepath.Join(t.TempDir(), "models"), "shop")
	assert.Error(t, err)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "users", TableName("User"))
	assert.Equal(t, "order_items", TableName("OrderItem"))
	assert.Equal(t, "categories", TableName("Category"))
}
