package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/introspect"
	"github.com/ridoystarlord/dblayer/schema"
)

func model(t *testing.T) *schema.Database {
	t.Helper()
	team := schema.NewTable("team",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("name", 100),
	).Index("name", "name")
	player := schema.NewTable("player",
		schema.PrimaryKeyColumn("id", true),
		schema.ForeignKeyColumn("team_id", "team"),
		schema.TextColumn("nick", 50),
		schema.IntegerColumn("score", 9, schema.Nullable()),
	).Unique("nick", "nick")
	match := schema.NewTable("match",
		schema.PrimaryKeyColumn("id", true),
		schema.DatetimeColumn("played"),
	)
	stats := schema.NewTable("stats", schema.IntegerColumn("total", 18)).AsExternal()
	db, err := schema.NewDatabase("league", []*schema.Table{team, player, match, stats}, nil, nil)
	require.NoError(t, err)
	return db
}

func live() []introspect.ExistingTable {
	return []introspect.ExistingTable{
		{
			TableName: "team",
			Columns: []introspect.ExistingColumn{
				{ColumnName: "id", DataType: "bigint", IsPrimaryKey: true},
				{ColumnName: "name", DataType: "character varying"},
				{ColumnName: "city", DataType: "text", IsNullable: true},
			},
			Indexes: []introspect.ExistingIndex{
				{IndexName: "team_pkey", Columns: []string{"id"}, IsUnique: true, IsPrimary: true, IndexType: "btree"},
				{IndexName: "team_name", Columns: []string{"name"}, IndexType: "btree"},
				{IndexName: "team_city", Columns: []string{"city"}, IndexType: "btree"},
			},
		},
		{
			TableName: "player",
			Columns: []introspect.ExistingColumn{
				{ColumnName: "id", DataType: "bigint", IsPrimaryKey: true},
				{ColumnName: "team_id", DataType: "bigint"},
				{ColumnName: "nick", DataType: "text", IsNullable: true},
				{ColumnName: "score", DataType: "text", IsNullable: true},
			},
			Indexes: []introspect.ExistingIndex{
				{IndexName: "player__nick", Columns: []string{"nick"}, IsUnique: true, IndexType: "btree"},
			},
		},
		{TableName: "legacy"},
	}
}

func TestDiffSchemas(t *testing.T) {
	ops := DiffSchemas(model(t), live())

	var got []string
	for _, op := range ops {
		got = append(got, op.String())
	}
	assert.Equal(t, []string{
		"EXTRA_COLUMN team.city",
		"EXTRA_INDEX team team_city",
		"MISSING_FOREIGN_KEY player.team_id: references team",
		"CHANGED_COLUMN player.nick: model nullable false, database nullable true",
		"CHANGED_COLUMN player.score: model integer, database text",
		"MISSING_TABLE match",
		"EXTRA_TABLE legacy",
	}, got)
}

func TestDiffSchemasInSync(t *testing.T) {
	existing := live()[:1]
	existing[0].Columns = existing[0].Columns[:2]
	existing[0].Indexes = existing[0].Indexes[:2]

	team := schema.NewTable("team",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("name", 100),
	).Index("name", "name")
	db, err := schema.NewDatabase("league", []*schema.Table{team}, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, DiffSchemas(db, existing))
}

func TestFix(t *testing.T) {
	db := model(t)
	existing := live()
	existing[0].Indexes = existing[0].Indexes[:1]

	g := generator.New(dialect.MustGet(dialect.Postgres))
	plan, err := Fix(g, DiffSchemas(db, existing))
	require.NoError(t, err)

	stmts := plan.Statements()
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE INDEX "team_name" ON "team" USING btree ("name");`, stmts[0])
	assert.Contains(t, stmts[1], `CREATE TABLE "match"`)
}
