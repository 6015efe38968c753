package dialect

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer/schema"
)

func TestGet(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "pgx", "sqlite", "sqlite3", "mysql"} {
		d, err := Get(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, d.Name())
	}
	_, err := Get("oracle")
	require.Error(t, err)
	assert.Panics(t, func() { MustGet("oracle") })
}

func TestFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@localhost:5432/db", Postgres},
		{"postgresql://localhost/db", Postgres},
		{"user:pass@tcp(127.0.0.1:3306)/db", MySQL},
		{"file:test.db?cache=shared", SQLite},
		{":memory:", SQLite},
		{"sqlite://data/app.db", SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d, err := FromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
	_, err := FromURL("redis://localhost")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"user"`, MustGet(Postgres).QuoteIdent("user"))
	assert.Equal(t, `"we""ird"`, MustGet(Postgres).QuoteIdent(`we"ird`))
	assert.Equal(t, "`user`", MustGet(MySQL).QuoteIdent("user"))
	assert.Equal(t, `"user"`, MustGet(SQLite).QuoteIdent("user"))
}

func TestQuoteLiteral(t *testing.T) {
	id := uuid.MustParse("9a5b8c3e-1f2d-4e6a-8b7c-0d1e2f3a4b5c")
	tests := []struct {
		name    string
		dialect string
		value   any
		want    string
	}{
		{"nil", Postgres, nil, "NULL"},
		{"true", Postgres, true, "TRUE"},
		{"int", Postgres, 42, "42"},
		{"int64", Postgres, int64(-7), "-7"},
		{"float", Postgres, 1.5, "1.5"},
		{"string", Postgres, "it's", "'it''s'"},
		{"bytes", Postgres, []byte("abc"), "'abc'"},
		{"backslash pg", Postgres, `a\b`, `'a\b'`},
		{"backslash mysql", MySQL, `a\b`, `'a\\b'`},
		{"date", Postgres, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "'2024-03-01'"},
		{"datetime", Postgres, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), "'2024-03-01 10:30:00'"},
		{"uuid", Postgres, id, "'9a5b8c3e-1f2d-4e6a-8b7c-0d1e2f3a4b5c'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MustGet(tt.dialect).QuoteLiteral(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MustGet(Postgres).QuoteLiteral(struct{}{})
	assert.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", MustGet(Postgres).Placeholder(3))
	assert.Equal(t, "?", MustGet(SQLite).Placeholder(3))
	assert.Equal(t, "?", MustGet(MySQL).Placeholder(3))
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		column *schema.Column
		pg     string
		sqlite string
		mysql  string
	}{
		{schema.PrimaryKeyColumn("id", true), "BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY", "BIGINT AUTO_INCREMENT PRIMARY KEY"},
		{schema.PrimaryKeyColumn("id", false), "BIGINT", "INTEGER", "BIGINT"},
		{schema.ForeignKeyColumn("group_id", "group"), "BIGINT", "INTEGER", "BIGINT"},
		{schema.BooleanColumn("active"), "BOOLEAN", "BOOLEAN", "BOOLEAN"},
		{schema.IntegerColumn("n", 0), "INTEGER", "INTEGER", "INTEGER"},
		{schema.IntegerColumn("n", 12), "BIGINT", "INTEGER", "BIGINT"},
		{schema.IntegerColumn("n", 30), "NUMERIC(30)", "INTEGER", "DECIMAL(30)"},
		{schema.FloatColumn("f", false), "REAL", "REAL", "FLOAT"},
		{schema.FloatColumn("f", true), "DOUBLE PRECISION", "REAL", "DOUBLE"},
		{schema.DecimalColumn("price", 10, 2), "NUMERIC(10, 2)", "NUMERIC(10, 2)", "DECIMAL(10, 2)"},
		{schema.TextColumn("email", 255), "VARCHAR(255)", "VARCHAR(255)", "VARCHAR(255)"},
		{schema.TextColumn("notes", 0), "TEXT", "TEXT", "TEXT"},
		{schema.DateColumn("born"), "DATE", "DATE", "DATE"},
		{schema.DatetimeColumn("created"), "TIMESTAMP WITHOUT TIME ZONE", "DATETIME", "DATETIME(6)"},
		{schema.UUIDColumn("token"), "UUID", "TEXT", "CHAR(36)"},
		{schema.CustomColumn("ip", "INET"), "INET", "INET", "INET"},
	}
	for _, tt := range tests {
		t.Run(tt.column.Name+"/"+string(tt.column.Kind), func(t *testing.T) {
			for name, want := range map[string]string{Postgres: tt.pg, SQLite: tt.sqlite, MySQL: tt.mysql} {
				got, err := MustGet(name).ColumnType(tt.column)
				require.NoError(t, err, name)
				assert.Equal(t, want, got, name)
			}
		})
	}

	doc := schema.SearchDocumentColumn("search", []string{"name"})
	got, err := MustGet(Postgres).ColumnType(doc)
	require.NoError(t, err)
	assert.Equal(t, "tsvector", got)
	_, err = MustGet(SQLite).ColumnType(doc)
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	sql, ok := MustGet(Postgres).Func(schema.OpContains, []string{`"name"`, "?"})
	require.True(t, ok)
	assert.Equal(t, `(strpos("name", ?) > 0)`, sql)

	sql, ok = MustGet(MySQL).Func(schema.OpConcat, []string{"`a`", "`b`"})
	require.True(t, ok)
	assert.Equal(t, "CONCAT(`a`, `b`)", sql)

	_, ok = MustGet(Postgres).Func(schema.OpConcat, []string{`"a"`, `"b"`})
	assert.False(t, ok)

	assert.Equal(t, `"email" ILIKE ?`, MustGet(Postgres).ILike(`"email"`, "?"))
	assert.Equal(t, `LOWER("email") LIKE LOWER(?)`, MustGet(SQLite).ILike(`"email"`, "?"))
}

func TestTruncate(t *testing.T) {
	tables := []string{"group_user", "user", "group"}
	assert.Equal(t,
		[]string{`TRUNCATE TABLE "group_user", "user", "group";`},
		MustGet(Postgres).Truncate(tables))
	assert.Equal(t,
		[]string{`DELETE FROM "group_user";`, `DELETE FROM "user";`, `DELETE FROM "group";`},
		MustGet(SQLite).Truncate(tables))
	assert.Nil(t, MustGet(Postgres).Truncate(nil))
}

func TestSavepoint(t *testing.T) {
	assert.Equal(t, "SAVEPOINT before_identity_insert", Savepoint("before_identity_insert"))
	assert.Equal(t, "RELEASE SAVEPOINT before_identity_insert", ReleaseSavepoint("before_identity_insert"))
	assert.Equal(t, "ROLLBACK TO SAVEPOINT before_identity_insert", RollbackToSavepoint("before_identity_insert"))
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pgconn", &pgconn.PgError{Code: "23505"}, true},
		{"pgconn wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgconn fk", &pgconn.PgError{Code: "23503"}, false},
		{"pq", &pq.Error{Code: "23505"}, true},
		{"mysql", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"sqlite text", errors.New("constraint failed: UNIQUE constraint failed: user.id (1555)"), true},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsPrimaryKeyViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pgconn key", &pgconn.PgError{Code: "23505", ConstraintName: "tag__pk_id"}, true},
		{"pgconn serial key", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "tag_pkey"}), true},
		{"pgconn other unique", &pgconn.PgError{Code: "23505", ConstraintName: "tag_name"}, false},
		{"pgconn other table", &pgconn.PgError{Code: "23505", ConstraintName: "user__pk_id"}, false},
		{"pq key", &pq.Error{Code: "23505", Constraint: "tag__pk_id"}, true},
		{"pq other unique", &pq.Error{Code: "23505", Constraint: "tag__name"}, false},
		{"mysql key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7' for key 'tag.PRIMARY'"}, true},
		{"mysql other unique", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'tag.tag_name'"}, false},
		{"sqlite text key", errors.New("constraint failed: UNIQUE constraint failed: tag.id (1555)"), true},
		{"sqlite text other column", errors.New("constraint failed: UNIQUE constraint failed: tag.name (2067)"), false},
		{"sqlite text longer column", errors.New("UNIQUE constraint failed: tag.id_old"), false},
		{"not unique", &pgconn.PgError{Code: "23503", ConstraintName: "tag__pk_id"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPrimaryKeyViolation(tt.err, "tag", "id"))
		})
	}
}

func TestIsSyntaxError(t *testing.T) {
	assert.True(t, IsSyntaxError(&pgconn.PgError{Code: "42601"}))
	assert.True(t, IsSyntaxError(&mysql.MySQLError{Number: 1064}))
	assert.True(t, IsSyntaxError(errors.New(`near "CREAT": syntax error`)))
	assert.False(t, IsSyntaxError(&pgconn.PgError{Code: "42P07"}))
	assert.False(t, IsSyntaxError(nil))
}
