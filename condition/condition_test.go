package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

var pg = dialect.MustGet(dialect.Postgres)

func testDatabase(t *testing.T) *schema.Database {
	t.Helper()
	group := schema.NewTable("group",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("name", 100),
	)
	user := schema.NewTable("user",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("email", 255),
		schema.IntegerColumn("age", 3, schema.Nullable()),
		schema.BooleanColumn("active"),
		schema.TextColumn("notes", 0, schema.Nullable()),
		schema.TextColumn("password", 100, schema.Hide()),
		schema.ForeignKeyColumn("manager_id", "user", schema.Nullable()),
	)
	groupUser := schema.NewTable("group_user",
		schema.PrimaryKeyColumn("id", true),
		schema.ForeignKeyColumn("group_id", "group"),
		schema.ForeignKeyColumn("user_id", "user"),
	)
	members := schema.NewQuery("group_members").
		From("g", "group").
		From("gu", "group_user").
		Join("u", "user", "gu", "user_id").
		Join("m", "user", "u", "manager_id").
		Select("group_name", schema.Col("g", "name")).
		SelectExpr("member_count", schema.Count(schema.Col("gu", "id")), schema.IntegerColumn("member_count", 18)).
		Select("manager_email", schema.Col("m", "email")).
		Where("user_email", schema.Col("u", "email"), nil).
		Having("max_age", schema.Max(schema.Col("u", "age")), schema.IntegerColumn("max_age", 3)).
		Group(schema.Col("g", "name")).
		Order("-member_count", "group_name").
		Sortable("user_email")

	db, err := schema.NewDatabase("test",
		[]*schema.Table{group, user, groupUser},
		[]*schema.Query{members}, nil)
	require.NoError(t, err)
	return db
}

func TestCompileTableCompleteness(t *testing.T) {
	db := testDatabase(t)
	user := db.Table("user")
	c, err := CompileTable(user, pg)
	require.NoError(t, err)

	sample := map[schema.ColumnKind]any{
		schema.KindPrimaryKey: 1,
		schema.KindForeignKey: 1,
		schema.KindInteger:    1,
		schema.KindText:       "x",
		schema.KindBoolean:    true,
	}
	for _, col := range user.AccessibleColumns() {
		e, ok := c.Where.Lookup(col.Name)
		require.True(t, ok, col.Name)
		assert.Equal(t, format.SuffixNone, e.Suffix)
		frag, err := e.Op(pg, e.Expr, e.Type, sample[col.Kind])
		require.NoError(t, err)
		assert.Equal(t, pg.QuoteIdent(col.Name)+" = ?", frag.SQL)
	}
	assert.Equal(t, 0, c.Having.Len())

	_, ok := c.Where.Lookup("password")
	assert.False(t, ok, "hidden columns are not accepted")
}

func TestSuffixesByKind(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileTable(db.Table("user"), pg)
	require.NoError(t, err)

	has := func(name string) bool {
		_, ok := c.Where.Lookup(name)
		return ok
	}
	assert.True(t, has("email__ilike"))
	assert.True(t, has("email__gt"))
	assert.False(t, has("email__isnull"), "email is NOT NULL")
	assert.True(t, has("notes__isnull"))
	assert.True(t, has("age__notnull"))
	assert.False(t, has("age__like"), "like is for text only")
	assert.False(t, has("active__lt"), "booleans are not ordered")
	assert.True(t, has("active__in"))
	assert.True(t, has("manager_id__isnull"))

	assert.Equal(t,
		[]string{"id", "id__eq", "id__ne", "id__in", "id__notin", "id__lt", "id__le", "id__gt", "id__ge"},
		c.Where.Names()[:9])
}

func TestCompileQuerySplit(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileQuery(db.Query("group_members"), pg)
	require.NoError(t, err)

	_, ok := c.Where.Lookup("group_name")
	assert.True(t, ok)
	_, ok = c.Where.Lookup("user_email__ilike")
	assert.True(t, ok)
	_, ok = c.Having.Lookup("member_count__gt")
	assert.True(t, ok)
	_, ok = c.Having.Lookup("max_age")
	assert.True(t, ok)
	_, ok = c.Where.Lookup("member_count")
	assert.False(t, ok)

	e, ok := c.Where.Lookup("manager_email__isnull")
	require.True(t, ok, "left joined columns accept null tests")
	assert.Equal(t, `"m"."email"`, e.Expr.SQL)

	e, _ = c.Having.Lookup("member_count")
	assert.Equal(t, `COUNT("gu"."id")`, e.Expr.SQL)
}

func TestBuildDeclarationOrder(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileTable(db.Table("user"), pg)
	require.NoError(t, err)

	runtime := map[string]any{
		"notes__isnull": false,
		"age__lt":       40,
		"email__ilike":  "%@example.com",
		"id__in":        []int64{7, 8},
	}
	for range 20 {
		cl, err := c.Build(runtime)
		require.NoError(t, err)
		require.Len(t, cl.Where, 4)
		assert.Equal(t, `"id" IN (?, ?)`, cl.Where[0].SQL)
		assert.Equal(t, `"email" ILIKE ?`, cl.Where[1].SQL)
		assert.Equal(t, `"age" < ?`, cl.Where[2].SQL)
		assert.Equal(t, `"notes" IS NOT NULL`, cl.Where[3].SQL)
		all := format.Join(" AND ", cl.Where...)
		assert.Equal(t, []any{int64(7), int64(8), "%@example.com", int64(40)}, all.Args)
		assert.Equal(t, format.Placeholders(all.SQL), len(all.Args))
	}
}

func TestBuildUnknownCondition(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileTable(db.Table("user"), pg)
	require.NoError(t, err)

	for _, name := range []string{"nope", "age__like", "email__between", "password"} {
		_, err = c.Build(map[string]any{"email": "a@b.c", name: 1})
		require.Error(t, err, name)
		assert.True(t, dblayer.IsUnknownCondition(err), name)
		var uce *dblayer.UnknownConditionError
		require.ErrorAs(t, err, &uce)
		assert.Equal(t, "user", uce.Source)
		assert.Equal(t, name, uce.Name)
	}

	_, err = c.Build(map[string]any{"age": "old"})
	assert.True(t, dblayer.IsFormat(err))
}

func TestBuildQueryHaving(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileQuery(db.Query("group_members"), pg)
	require.NoError(t, err)

	cl, err := c.Build(map[string]any{"member_count__ge": 2, "group_name": "admins"})
	require.NoError(t, err)
	require.Len(t, cl.Where, 1)
	require.Len(t, cl.Having, 1)
	assert.Equal(t, `"g"."name" = ?`, cl.Where[0].SQL)
	assert.Equal(t, `COUNT("gu"."id") >= ?`, cl.Having[0].SQL)
	assert.Equal(t, []any{int64(2)}, cl.Having[0].Args)
}

func TestOrderBy(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileTable(db.Table("user"), pg)
	require.NoError(t, err)

	frag, err := c.OrderBy.Resolve([]string{"-age", "+email", "id"})
	require.NoError(t, err)
	assert.Equal(t, `"age" DESC, "email", "id"`, frag.SQL)

	frag, err = c.OrderBy.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, frag.SQL)

	for _, bad := range []string{"password", "age; DROP TABLE user", "--age", "", "email__ilike"} {
		_, err := c.OrderBy.Resolve([]string{"id", bad})
		require.Error(t, err, bad)
		assert.True(t, dblayer.IsInvalidSortKey(err), bad)
	}
}

func TestQueryOrderBy(t *testing.T) {
	db := testDatabase(t)
	q := db.Query("group_members")
	c, err := CompileQuery(q, pg)
	require.NoError(t, err)

	frag, err := c.OrderBy.Resolve(q.OrderBy)
	require.NoError(t, err)
	assert.Equal(t, `COUNT("gu"."id") DESC, "g"."name"`, frag.SQL)

	_, err = c.OrderBy.Key("user_email")
	assert.NoError(t, err, "sortable condition")
	_, err = c.OrderBy.Key("max_age")
	assert.True(t, dblayer.IsInvalidSortKey(err), "conditions are not sortable by default")
}

func TestCompileQueryInvalidDefaultOrder(t *testing.T) {
	user := schema.NewTable("user",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("email", 255),
	)
	q := schema.NewQuery("emails").
		From("u", "user").
		Select("email", schema.Col("u", "email")).
		Where("user_id", schema.Col("u", "id"), nil).
		Order("user_id")
	db, err := schema.NewDatabase("test", []*schema.Table{user}, []*schema.Query{q}, nil)
	require.NoError(t, err)

	_, err = CompileQuery(db.Query("emails"), pg)
	require.Error(t, err)
	assert.True(t, dblayer.IsInvalidSortKey(err))
}

func TestParseArgs(t *testing.T) {
	db := testDatabase(t)
	c, err := CompileTable(db.Table("user"), pg)
	require.NoError(t, err)

	got, err := c.ParseArgs([]string{"age__in=18, 21", "active=true", "notes__isnull=true", "email__like=%@x.org", "manager_id=null", "id__notin="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"age__in":       []any{int64(18), int64(21)},
		"active":        true,
		"notes__isnull": true,
		"email__like":   "%@x.org",
		"manager_id":    nil,
		"id__notin":     []any{},
	}, got)

	tests := []struct {
		arg   string
		check func(error) bool
	}{
		{"nope=1", dblayer.IsUnknownCondition},
		{"age", dblayer.IsFormat},
		{"age=old", dblayer.IsFormat},
		{"notes__isnull=maybe", dblayer.IsFormat},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			_, err := c.ParseArgs([]string{tt.arg})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}
