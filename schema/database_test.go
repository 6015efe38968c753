package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer"
)

func shop() ([]*Table, []*Query) {
	customer := NewTable("customer",
		PrimaryKeyColumn("id", true),
		TextColumn("name", 100),
		IntegerColumn("age", 3, Nullable()),
	)
	order := NewTable("purchase",
		PrimaryKeyColumn("id", false),
		ForeignKeyColumn("customer_id", "customer"),
		ForeignKeyColumn("referrer_id", "customer", Nullable()),
		DecimalColumn("total", 12, 2),
	).Index("customer", "customer_id")
	spending := NewQuery("spending").
		From("p", "purchase").
		Join("c", "customer", "p", "customer_id").
		Select("name", Col("c", "name")).
		SelectExpr("spent", Sum(Col("p", "total")), DecimalColumn("spent", 18, 2)).
		Where("age", Col("c", "age"), nil).
		Group(Col("c", "name"))
	return []*Table{customer, order}, []*Query{spending}
}

func TestNewDatabase(t *testing.T) {
	tables, queries := shop()
	db, err := NewDatabase("shop", tables, queries, nil)
	require.NoError(t, err)

	customer := db.Table("customer")
	purchase := db.Table("purchase")
	assert.Equal(t, "id", customer.PrimaryKey().Name)
	assert.Same(t, db, purchase.Database())
	assert.Same(t, customer, purchase.Column("customer_id").Referenced())
	assert.Same(t, purchase, purchase.Column("total").Table())

	q := db.Query("spending")
	require.NotNil(t, q)
	assert.Equal(t, InnerJoin, q.Alias("c").JoinType())
	assert.Empty(t, q.Alias("p").JoinType())
	assert.Same(t, customer.Column("name"), q.Results[0].Type)
	assert.False(t, q.Results[0].AfterGroupBy())
	assert.True(t, q.Results[1].AfterGroupBy())
	assert.Same(t, customer.Column("age"), q.Conditions[0].Type)

	assert.Nil(t, db.Table("nope"))
	assert.Len(t, db.CreatableTables(), 2)
}

func TestNewDatabaseErrors(t *testing.T) {
	tests := []struct {
		name   string
		tables func() []*Table
		check  func(error) bool
	}{
		{
			name: "invalid identifier",
			tables: func() []*Table {
				return []*Table{NewTable("bad name", PrimaryKeyColumn("id", true))}
			},
			check: dblayer.IsFormat,
		},
		{
			name: "duplicate table",
			tables: func() []*Table {
				return []*Table{NewTable("a", PrimaryKeyColumn("id", true)), NewTable("a", PrimaryKeyColumn("id", true))}
			},
			check: dblayer.IsFormat,
		},
		{
			name: "two primary keys",
			tables: func() []*Table {
				return []*Table{NewTable("a", PrimaryKeyColumn("id", true), PrimaryKeyColumn("id2", false))}
			},
			check: dblayer.IsFormat,
		},
		{
			name: "foreign key to later table",
			tables: func() []*Table {
				return []*Table{
					NewTable("child", PrimaryKeyColumn("id", true), ForeignKeyColumn("parent_id", "parent")),
					NewTable("parent", PrimaryKeyColumn("id", true)),
				}
			},
			check: dblayer.IsFormat,
		},
		{
			name: "foreign key to table without primary key",
			tables: func() []*Table {
				return []*Table{
					NewTable("log", TextColumn("line", 0)),
					NewTable("entry", PrimaryKeyColumn("id", true), ForeignKeyColumn("log_id", "log")),
				}
			},
			check: dblayer.IsMissingPrimaryKey,
		},
		{
			name: "self reference without primary key",
			tables: func() []*Table {
				return []*Table{NewTable("node", ForeignKeyColumn("parent_id", "node"), TextColumn("label", 20))}
			},
			check: dblayer.IsMissingPrimaryKey,
		},
		{
			name: "search document over non text",
			tables: func() []*Table {
				return []*Table{NewTable("doc", PrimaryKeyColumn("id", true), IntegerColumn("n", 3), SearchDocumentColumn("s", []string{"n"}))}
			},
			check: dblayer.IsFormat,
		},
		{
			name: "index on unknown column",
			tables: func() []*Table {
				return []*Table{NewTable("a", PrimaryKeyColumn("id", true)).Index("x", "missing")}
			},
			check: dblayer.IsFormat,
		},
		{
			name: "trigger without procedure",
			tables: func() []*Table {
				return []*Table{NewTable("a", PrimaryKeyColumn("id", true)).Trigger("t", Before, OnInsert, ForEachRow, "nope")}
			},
			check: dblayer.IsFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDatabase("broken", tt.tables(), nil, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestQueryBindErrors(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
	}{
		{"no tables", NewQuery("q")},
		{"unknown table", NewQuery("q").From("x", "nope")},
		{"duplicate alias", NewQuery("q").From("c", "customer").From("c", "purchase")},
		{"join through non foreign key", NewQuery("q").From("p", "purchase").Join("c", "customer", "p", "total")},
		{"unknown column", NewQuery("q").From("c", "customer").Select("x", Col("c", "missing"))},
		{"computed without type", NewQuery("q").From("c", "customer").SelectExpr("n", Count(Col("c", "id")), nil)},
		{"clash with table", NewQuery("customer").From("c", "customer")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, _ := shop()
			_, err := NewDatabase("shop", tables, []*Query{tt.query}, nil)
			require.Error(t, err)
			assert.True(t, dblayer.IsFormat(err), "unexpected error %v", err)
		})
	}
}

func TestLeftJoinForNullableForeignKey(t *testing.T) {
	tables, _ := shop()
	q := NewQuery("referrals").
		From("p", "purchase").
		Join("r", "customer", "p", "referrer_id").
		Select("referrer", Col("r", "name"))
	db, err := NewDatabase("shop", tables, []*Query{q}, nil)
	require.NoError(t, err)
	assert.Equal(t, LeftJoin, db.Query("referrals").Alias("r").JoinType())
}

func TestSortByReferences(t *testing.T) {
	a := NewTable("a", PrimaryKeyColumn("id", true), ForeignKeyColumn("b_id", "b"))
	b := NewTable("b", PrimaryKeyColumn("id", true), ForeignKeyColumn("c_id", "c"), ForeignKeyColumn("b_id", "b"))
	c := NewTable("c", PrimaryKeyColumn("id", true), ForeignKeyColumn("ext_id", "external"))
	d := NewTable("d", PrimaryKeyColumn("id", true))

	sorted := SortByReferences([]*Table{a, d, b, c})
	var names []string
	for _, t := range sorted {
		names = append(names, t.Name)
	}
	assert.Equal(t, []string{"c", "b", "a", "d"}, names)
}

func TestTableHelpers(t *testing.T) {
	tables, _ := shop()
	_, err := NewDatabase("shop", tables, nil, nil)
	require.NoError(t, err)
	purchase := tables[1]

	var names []string
	for _, con := range purchase.AllConstraints() {
		names = append(names, con.Name)
	}
	assert.Equal(t, []string{"pk_id", "fk_customer_id", "fk_referrer_id"}, names)

	assert.Len(t, purchase.WritableColumns(), 4)
	assert.Len(t, tables[0].WritableColumns(), 2)
	assert.True(t, purchase.Column("total").Required())
	assert.False(t, purchase.Column("referrer_id").Required())
}
