package format

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/schema"
)

var (
	pg   = dialect.MustGet(dialect.Postgres)
	lite = dialect.MustGet(dialect.SQLite)
)

func userTable() *schema.Table {
	return schema.NewTable("user",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("email", 255),
		schema.TextColumn("name", 100),
		schema.IntegerColumn("age", 3, schema.Nullable()),
		schema.BooleanColumn("active", schema.Default(true)),
		schema.TextColumn("notes", 0, schema.Nullable()),
		schema.DatetimeColumn("created"),
	)
}

func testDatabase(t *testing.T) *schema.Database {
	t.Helper()
	group := schema.NewTable("group",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("name", 100),
	)
	user := userTable()
	groupUser := schema.NewTable("group_user",
		schema.PrimaryKeyColumn("id", true),
		schema.ForeignKeyColumn("group_id", "group"),
		schema.ForeignKeyColumn("user_id", "user"),
	)
	q := schema.NewQuery("user_group").
		From("u", "user").
		From("gu", "group_user").
		Select("email", schema.Col("u", "email"))
	db, err := schema.NewDatabase("test", []*schema.Table{group, user, groupUser}, []*schema.Query{q}, nil)
	require.NoError(t, err)
	return db
}

func TestFormatColumn(t *testing.T) {
	f := Formatter{Dialect: pg, Scope: userTable()}
	frag, err := f.Format(schema.C("email"))
	require.NoError(t, err)
	assert.Equal(t, `"email"`, frag.SQL)
	assert.Empty(t, frag.Args)

	_, err = f.Format(schema.C("missing"))
	require.Error(t, err)
	assert.True(t, dblayer.IsFormat(err))

	_, err = Formatter{Dialect: pg}.Format(schema.C("email"))
	assert.True(t, dblayer.IsFormat(err))
}

func TestFormatQualified(t *testing.T) {
	db := testDatabase(t)
	f := Formatter{Dialect: pg, Scope: db.Query("user_group")}
	frag, err := f.Format(schema.Equal(schema.Col("u", "id"), schema.Col("gu", "user_id")))
	require.NoError(t, err)
	assert.Equal(t, `("u"."id" = "gu"."user_id")`, frag.SQL)

	_, err = f.Format(schema.Col("x", "id"))
	assert.True(t, dblayer.IsFormat(err))
}

// Distinct sentinels must come out in exactly the order of their
// placeholders.
func TestParameterPositions(t *testing.T) {
	f := Formatter{Dialect: pg, Scope: userTable()}
	e := schema.And(
		schema.Equal(schema.C("email"), schema.Lit("s1")),
		schema.Or(
			schema.GreaterThan(schema.C("age"), schema.Lit("s2")),
			schema.In(schema.C("name"), "s3", "s4"),
		),
		schema.SQL(`"notes" <> ? AND '?' <> "name"`, "s5"),
		schema.Like(schema.Concat(schema.C("name"), schema.Lit("s6")), schema.Lit("s7")),
		schema.Substring(schema.C("notes"), schema.Lit("s8"), schema.Lit("s9")),
	)
	frag, err := f.Format(e)
	require.NoError(t, err)
	require.Equal(t, Placeholders(frag.SQL), len(frag.Args))
	assert.Equal(t, []any{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"}, frag.Args)

	rebound := Rebind(pg, frag.SQL)
	last := -1
	for i := range frag.Args {
		idx := strings.Index(rebound, "$"+strconv.Itoa(i+1))
		require.Greater(t, idx, last, "placeholder $%d out of order in %s", i+1, rebound)
		last = idx
	}
	assert.NotContains(t, rebound, "$"+strconv.Itoa(len(frag.Args)+1))
	assert.Contains(t, rebound, `'?' <> "name"`)
}

func TestFormatFunctions(t *testing.T) {
	tbl := userTable()
	tests := []struct {
		name    string
		dialect dialect.Dialect
		expr    schema.Expr
		sql     string
		args    []any
	}{
		{"equal nil", pg, schema.Equal(schema.C("age"), schema.Lit(nil)), `"age" IS NULL`, nil},
		{"not equal nil", pg, schema.NotEqual(schema.C("age"), schema.Lit(nil)), `"age" IS NOT NULL`, nil},
		{"in empty", pg, schema.In(schema.C("id")), "FALSE", nil},
		{"not in empty", pg, schema.NotIn(schema.C("id")), "TRUE", nil},
		{"not in", pg, schema.NotIn(schema.C("id"), 1, 2), `"id" NOT IN (?, ?)`, []any{1, 2}},
		{"not", pg, schema.Not(schema.C("active")), `NOT ("active")`, nil},
		{"and single", pg, schema.And(schema.C("active")), `("active")`, nil},
		{"and empty", pg, schema.And(), "TRUE", nil},
		{"neg", pg, schema.Neg(schema.C("age")), `(-"age")`, nil},
		{"concat pg", pg, schema.Concat(schema.C("name"), schema.Lit(" "), schema.C("email")), `("name" || ? || "email")`, []any{" "}},
		{"concat mysql", dialect.MustGet(dialect.MySQL), schema.Concat(schema.C("name"), schema.C("email")), "CONCAT(`name`, `email`)", nil},
		{"left", pg, schema.Left(schema.C("name"), schema.Lit(3)), `LEFT("name", ?)`, []any{3}},
		{"left sqlite", lite, schema.Left(schema.C("name"), schema.Lit(3)), `substr("name", 1, ?)`, []any{3}},
		{"contains", pg, schema.Contains(schema.C("name"), schema.Lit("x")), `(strpos("name", ?) > 0)`, []any{"x"}},
		{"match", pg, schema.Match(schema.C("email"), schema.Lit("^a")), `("email" ~ ?)`, []any{"^a"}},
		{"coalesce", pg, schema.Coalesce(schema.C("age"), schema.Lit(0)), `COALESCE("age", ?)`, []any{0}},
		{"count", pg, schema.Count(schema.C("id")), `COUNT("id")`, nil},
		{"custom function", pg, schema.Fn("lower", schema.C("email")), `lower("email")`, nil},
		{"math", pg, schema.Div(schema.Mul(schema.C("age"), schema.Lit(2)), schema.Lit(3)), `(("age" * ?) / ?)`, []any{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, err := Formatter{Dialect: tt.dialect, Scope: tbl}.Format(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, frag.SQL)
			assert.Equal(t, tt.args, frag.Args)
		})
	}
}

func TestFormatErrors(t *testing.T) {
	f := Formatter{Dialect: lite, Scope: userTable()}
	tests := []struct {
		name string
		expr schema.Expr
	}{
		{"unsupported by dialect", schema.FullTextSearch(schema.C("notes"), schema.Lit("x"))},
		{"arity", schema.Func{Op: schema.OpNot}},
		{"raw arguments", schema.SQL("a = ? AND b = ?", 1)},
		{"bad function name", schema.Fn("drop table x;--", schema.C("id"))},
		{"in without list", schema.Func{Op: schema.OpIn, Args: []schema.Expr{schema.C("id"), schema.Lit(3)}}},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Format(tt.expr)
			require.Error(t, err)
			assert.True(t, dblayer.IsFormat(err), err.Error())
		})
	}
}

func TestFormatInline(t *testing.T) {
	f := Formatter{Dialect: pg, Scope: userTable(), Inline: true}
	frag, err := f.Format(schema.And(
		schema.GreaterThan(schema.C("age"), schema.Lit(17)),
		schema.NotEqual(schema.C("name"), schema.Lit("O'Brien")),
		schema.SQL(`"email" LIKE ?`, "%@%"),
	))
	require.NoError(t, err)
	assert.Equal(t, `(("age" > 17) AND ("name" <> 'O''Brien') AND "email" LIKE '%@%')`, frag.SQL)
	assert.Empty(t, frag.Args)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, `SELECT * FROM "t" WHERE "a" = $1 AND "b" IN ($2, $3)`,
		Rebind(pg, `SELECT * FROM "t" WHERE "a" = ? AND "b" IN (?, ?)`))
	assert.Equal(t, `SELECT 'it''s ?' WHERE "a?" = $1`,
		Rebind(pg, `SELECT 'it''s ?' WHERE "a?" = ?`))
	assert.Equal(t, `SELECT ? FROM "t"`, Rebind(lite, `SELECT ? FROM "t"`))
	assert.Equal(t, 2, Placeholders(`? '?' ?`))
}

func TestBind(t *testing.T) {
	tbl := userTable()
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	id := uuid.New()
	age := int64(30)
	email := "a@b.c"
	tests := []struct {
		name   string
		column *schema.Column
		value  any
		want   any
		fails  bool
	}{
		{"int to pk", tbl.Column("id"), 5, int64(5), false},
		{"json float to int", tbl.Column("age"), float64(30), int64(30), false},
		{"fractional float to int", tbl.Column("age"), 30.5, nil, true},
		{"string to int", tbl.Column("age"), "30", nil, true},
		{"bytes to text", tbl.Column("email"), []byte("a@b.c"), "a@b.c", false},
		{"int to text", tbl.Column("email"), 3, nil, true},
		{"bool", tbl.Column("active"), true, true, false},
		{"string to bool", tbl.Column("active"), "true", nil, true},
		{"time", tbl.Column("created"), created, created, false},
		{"iso text", tbl.Column("created"), "2024-05-06T07:08:09Z", created, false},
		{"bad time", tbl.Column("created"), "yesterday", nil, true},
		{"nil", tbl.Column("age"), nil, nil, false},
		{"float", schema.FloatColumn("f", true), 2, float64(2), false},
		{"decimal text", schema.DecimalColumn("d", 10, 2), " 12.50 ", "12.50", false},
		{"decimal garbage", schema.DecimalColumn("d", 10, 2), "twelve", nil, true},
		{"uuid", schema.UUIDColumn("u"), id, id.String(), false},
		{"uuid text", schema.UUIDColumn("u"), id.String(), id.String(), false},
		{"bad uuid", schema.UUIDColumn("u"), "not-a-uuid", nil, true},
		{"custom passes", schema.CustomColumn("ip", "INET"), "10.0.0.1", "10.0.0.1", false},
		{"nil pointer", tbl.Column("age"), (*int64)(nil), nil, false},
		{"int pointer", tbl.Column("age"), &age, int64(30), false},
		{"string pointer", tbl.Column("email"), &email, "a@b.c", false},
		{"time pointer", tbl.Column("created"), &created, created, false},
		{"pointer to wrong kind", tbl.Column("age"), &email, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bind(tt.column, tt.value)
			if tt.fails {
				require.Error(t, err)
				assert.True(t, dblayer.IsFormat(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	tbl := userTable()
	v, err := Parse(tbl.Column("age"), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = Parse(tbl.Column("active"), "false")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = Parse(tbl.Column("notes"), "NULL")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Parse(tbl.Column("age"), "forty")
	assert.True(t, dblayer.IsFormat(err))
}

func TestOperators(t *testing.T) {
	tbl := userTable()
	col := Fragment{SQL: `"age"`}
	computed := Fragment{SQL: `("age" + ?)`, Args: []any{"offset"}}
	tests := []struct {
		suffix string
		expr   Fragment
		value  any
		sql    string
		args   []any
	}{
		{SuffixNone, col, 3, `"age" = ?`, []any{int64(3)}},
		{SuffixEq, col, nil, `"age" IS NULL`, nil},
		{SuffixEq, col, (*int64)(nil), `"age" IS NULL`, nil},
		{SuffixNe, col, nil, `"age" IS NOT NULL`, nil},
		{SuffixNe, col, 3, `"age" <> ?`, []any{int64(3)}},
		{SuffixLt, computed, 3, `("age" + ?) < ?`, []any{"offset", int64(3)}},
		{SuffixGe, col, 3, `"age" >= ?`, []any{int64(3)}},
		{SuffixIn, computed, []int{1, 2}, `("age" + ?) IN (?, ?)`, []any{"offset", int64(1), int64(2)}},
		{SuffixIn, col, []int{}, "FALSE", nil},
		{SuffixNotIn, col, []any{}, "TRUE", nil},
		{SuffixIsNull, col, true, `"age" IS NULL`, nil},
		{SuffixIsNull, col, false, `"age" IS NOT NULL`, nil},
		{SuffixNotNull, col, true, `"age" IS NOT NULL`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.suffix+"/"+tt.sql, func(t *testing.T) {
			op, ok := OperatorFor(tt.suffix)
			require.True(t, ok)
			got, err := op(pg, tt.expr, tbl.Column("age"), tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, got.SQL)
			assert.Equal(t, tt.args, got.Args)
		})
	}

	email := tbl.Column("email")
	got, err := ILike(pg, Fragment{SQL: `"email"`}, email, "%@example.com")
	require.NoError(t, err)
	assert.Equal(t, `"email" ILIKE ?`, got.SQL)
	got, err = ILike(lite, Fragment{SQL: `"email"`}, email, "%@example.com")
	require.NoError(t, err)
	assert.Equal(t, `LOWER("email") LIKE LOWER(?)`, got.SQL)
	assert.Equal(t, []any{"%@example.com"}, got.Args)

	_, ok := OperatorFor("__between")
	assert.False(t, ok)

	for _, bad := range []struct {
		suffix string
		value  any
	}{
		{SuffixLt, nil},
		{SuffixIn, 3},
		{SuffixIn, []string{"x"}},
		{SuffixIsNull, "yes"},
	} {
		op, _ := OperatorFor(bad.suffix)
		_, err := op(pg, col, tbl.Column("age"), bad.value)
		assert.True(t, dblayer.IsFormat(err), bad.suffix)
	}
	_, err = Like(pg, Fragment{SQL: `"email"`}, email, 5)
	assert.True(t, dblayer.IsFormat(err))
}

func TestDecode(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name   string
		column *schema.Column
		in     any
		want   any
	}{
		{"null", schema.TextColumn("t", 0), nil, nil},
		{"text bytes", schema.TextColumn("t", 0), []byte("hello"), "hello"},
		{"integer bytes", schema.IntegerColumn("n", 9), []byte("42"), int64(42)},
		{"integer", schema.IntegerColumn("n", 9), int32(42), int64(42)},
		{"boolean from integer", schema.BooleanColumn("b"), int64(1), true},
		{"boolean", schema.BooleanColumn("b"), false, false},
		{"float from integer", schema.FloatColumn("f", true), int64(3), float64(3)},
		{"decimal bytes", schema.DecimalColumn("d", 10, 2), []byte("12.50"), "12.50"},
		{"decimal float", schema.DecimalColumn("d", 10, 2), 12.5, "12.5"},
		{"uuid array", schema.UUIDColumn("u"), [16]byte(id), id.String()},
		{"uuid bytes", schema.UUIDColumn("u"), []byte(id.String()), id.String()},
		{"uuid", schema.UUIDColumn("u"), id, id.String()},
		{"datetime", schema.DatetimeColumn("c"), created, created},
		{"datetime text", schema.DatetimeColumn("c"), "2024-03-01 12:30:00", created},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.column, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Decode(schema.IntegerColumn("n", 9), []byte("many"))
	assert.True(t, dblayer.IsFormat(err))
}
