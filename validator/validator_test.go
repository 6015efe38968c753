package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer/introspect"
	"github.com/ridoystarlord/dblayer/schema"
)

func types(errs []ValidationError) []string {
	out := []string{}
	for _, e := range errs {
		out = append(out, e.Type)
	}
	return out
}

func league() []*schema.Table {
	team := schema.NewTable("team",
		schema.PrimaryKeyColumn("id", true),
		schema.TextColumn("name", 100),
	).Index("name", "name")
	player := schema.NewTable("player",
		schema.PrimaryKeyColumn("id", true),
		schema.ForeignKeyColumn("team_id", "team", schema.Actions("cascade", "")),
		schema.IntegerColumn("score", 9, schema.Default(0)),
	).Index("team", "team_id")
	return []*schema.Table{team, player}
}

func TestValidateTablesClean(t *testing.T) {
	result := ValidateTables(league())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Info)
}

func TestValidateTables(t *testing.T) {
	tests := []struct {
		name     string
		tables   func() []*schema.Table
		errors   []string
		warnings []string
		info     []string
	}{
		{
			name: "identifiers",
			tables: func() []*schema.Table {
				return []*schema.Table{
					schema.NewTable("bad-name", schema.PrimaryKeyColumn("id", true)),
					schema.NewTable(strings.Repeat("t", 64), schema.PrimaryKeyColumn("id", true)),
					schema.NewTable("ok", schema.PrimaryKeyColumn("id", true), schema.TextColumn("9lives", 10)),
				}
			},
			errors: []string{"table_name", "table_name", "column_name"},
		},
		{
			name: "reserved words",
			tables: func() []*schema.Table {
				return []*schema.Table{schema.NewTable("user", schema.PrimaryKeyColumn("id", true), schema.TextColumn("order", 10))}
			},
			warnings: []string{"reserved_word", "reserved_word"},
		},
		{
			name: "duplicates",
			tables: func() []*schema.Table {
				a := schema.NewTable("a", schema.PrimaryKeyColumn("id", true), schema.TextColumn("x", 5), schema.TextColumn("x", 5), schema.PrimaryKeyColumn("id2", false)).
					Index("x", "x").Index("x", "x")
				return []*schema.Table{a, schema.NewTable("a", schema.PrimaryKeyColumn("id", true))}
			},
			errors: []string{"duplicate_column", "multiple_primary_keys", "duplicate_index", "duplicate_table"},
		},
		{
			name: "foreign keys",
			tables: func() []*schema.Table {
				log := schema.NewTable("log", schema.TextColumn("line", 0))
				entry := schema.NewTable("entry",
					schema.PrimaryKeyColumn("id", true),
					schema.ForeignKeyColumn("later_id", "later"),
					schema.ForeignKeyColumn("log_id", "log", schema.Actions("set null", "explode")),
					schema.ForeignKeyColumn("parent_id", "entry", schema.Nullable()),
				).Index("later", "later_id").Index("log", "log_id")
				return []*schema.Table{log, entry}
			},
			errors: []string{
				"foreign_key_table_not_found",
				"foreign_key_no_primary_key", "foreign_key_action", "foreign_key_action",
			},
			warnings: []string{"no_primary_key"},
			info:     []string{"unindexed_foreign_key"},
		},
		{
			name: "columns and indexes",
			tables: func() []*schema.Table {
				return []*schema.Table{schema.NewTable("doc",
					schema.PrimaryKeyColumn("id", true),
					schema.IntegerColumn("size", 9, schema.Default("big")),
					schema.DatetimeColumn("at", schema.Default("now"), schema.CustomDefault("now()")),
					schema.TextColumn("body", 0),
					schema.SearchDocumentColumn("search", []string{"size"}),
					schema.CustomColumn("extra", ""),
				).Index("body", "body").Index("missing", "nope").Unique("code", "code")}
			},
			errors: []string{
				"default_value", "default_value", "search_document", "data_type",
				"constraint_column_not_found", "index_column_not_found",
			},
			warnings: []string{"unbounded_index_column"},
		},
		{
			name: "long derived names",
			tables: func() []*schema.Table {
				name := strings.Repeat("n", 40)
				return []*schema.Table{schema.NewTable(name,
					schema.PrimaryKeyColumn("id", true),
					schema.TextColumn("title", 50),
					schema.SearchDocumentColumn("search", []string{"title"}),
				).Index(strings.Repeat("i", 30), "title")}
			},
			errors: []string{"index_name", "index_name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateTables(tt.tables())
			assert.ElementsMatch(t, tt.errors, types(result.Errors))
			assert.ElementsMatch(t, tt.warnings, types(result.Warnings))
			assert.ElementsMatch(t, tt.info, types(result.Info))
			assert.Equal(t, len(tt.errors) == 0, result.Valid)
		})
	}
}

func TestCompareExisting(t *testing.T) {
	db, err := schema.NewDatabase("league", league(), nil, nil)
	require.NoError(t, err)

	result := Validate(db)
	CompareExisting(result, db, []introspect.ExistingTable{{TableName: "team"}, {TableName: "legacy"}})

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "legacy", result.Warnings[0].Table)
	require.Len(t, result.Info, 1)
	assert.Equal(t, "table_exists", result.Info[0].Type)
	assert.Equal(t, "team", result.Info[0].Table)
	assert.True(t, result.Valid)
}
