package database

import (
	"context"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/dblayer/config"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/runner"
)

func TestDataSourceName(t *testing.T) {
	my := dialect.MustGet(dialect.MySQL)
	dsn, err := DataSourceName(my, "mysql://app:secret@db:3306/shop?charset=utf8mb4")
	require.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "shop", cfg.DBName)
	assert.True(t, cfg.ParseTime)

	dsn, err = DataSourceName(my, "app@tcp(db:3306)/shop")
	require.NoError(t, err)
	assert.Equal(t, "app@tcp(db:3306)/shop", dsn)

	dsn, err = DataSourceName(dialect.MustGet(dialect.SQLite), "sqlite://data/app.db")
	require.NoError(t, err)
	assert.Equal(t, "data/app.db", dsn)

	assert.Equal(t, "postgres", DriverName(dialect.MustGet(dialect.Postgres)))
	assert.Equal(t, "sqlite", DriverName(dialect.MustGet(dialect.SQLite)))
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.Options{DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, dialect.SQLite, db.Dialect.Name())
	assert.Nil(t, db.Pool())
	require.NoError(t, db.Ping(ctx))

	err = db.InTx(ctx, func(c runner.Cursor) error {
		if _, err := c.Exec(ctx, `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY)`); err != nil {
			return err
		}
		_, err := c.Exec(ctx, `INSERT INTO "t" ("id") VALUES (?)`, int64(1))
		return err
	})
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	r := runner.New(tx.Cursor(), db.Dialect, runner.Options{})
	n, err := r.FetchInt(ctx, `SELECT COUNT(*) FROM "t"`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after rollback is a no-op")
}
