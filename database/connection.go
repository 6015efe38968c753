// Package database opens connections for the configured dialect and hands
// out transaction cursors.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/dblayer/config"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/runner"
)

var (
	pool     *pgxpool.Pool
	poolOnce sync.Once
	poolErr  error
)

// GetPool returns a process wide pgx connection pool for url. Only the
// first call connects; later calls return the same pool.
func GetPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolOnce.Do(func() {
		pool, poolErr = pgxpool.New(ctx, url)
		if poolErr != nil {
			poolErr = fmt.Errorf("unable to create connection pool: %w", poolErr)
			return
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			pool = nil
			poolErr = fmt.Errorf("unable to ping database: %w", err)
		}
	})
	return pool, poolErr
}

// ClosePool closes the pool opened by GetPool.
func ClosePool() {
	if pool != nil {
		pool.Close()
	}
}

// DriverName returns the database/sql driver used for d.
func DriverName(d dialect.Dialect) string {
	switch d.Name() {
	case dialect.Postgres:
		return "postgres"
	case dialect.MySQL:
		return "mysql"
	}
	return "sqlite"
}

// DataSourceName converts a connection URL into the form the driver of d
// expects.
func DataSourceName(d dialect.Dialect, rawURL string) (string, error) {
	switch d.Name() {
	case dialect.MySQL:
		if !strings.HasPrefix(rawURL, "mysql://") {
			return rawURL, nil
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		cfg := mysql.NewConfig()
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.ParseTime = true
		for k, vs := range u.Query() {
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[k] = vs[len(vs)-1]
		}
		return cfg.FormatDSN(), nil
	case dialect.SQLite:
		return strings.TrimPrefix(rawURL, "sqlite://"), nil
	}
	return rawURL, nil
}

// OpenSQL opens a database/sql handle for the options. PostgreSQL goes
// through lib/pq here.
func OpenSQL(opts config.Options) (*sql.DB, dialect.Dialect, error) {
	d, err := opts.ResolveDialect()
	if err != nil {
		return nil, nil, err
	}
	dsn, err := DataSourceName(d, opts.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(DriverName(d), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	return db, d, nil
}

// DB is an open database of any supported dialect.
type DB struct {
	Dialect dialect.Dialect

	pool *pgxpool.Pool
	sql  *sql.DB
}

// Open connects according to opts: PostgreSQL through the shared pgx pool
// unless the pq driver is configured, everything else through
// database/sql.
func Open(ctx context.Context, opts config.Options) (*DB, error) {
	d, err := opts.ResolveDialect()
	if err != nil {
		return nil, err
	}
	if d.Name() == dialect.Postgres && opts.Driver != "pq" {
		p, err := GetPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &DB{Dialect: d, pool: p}, nil
	}
	db, d, err := OpenSQL(opts)
	if err != nil {
		return nil, err
	}
	if d.Name() == dialect.SQLite {
		// Savepoints and in-memory databases need a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &DB{Dialect: d, sql: db}, nil
}

// FromSQL wraps an already open database/sql handle.
func FromSQL(db *sql.DB, d dialect.Dialect) *DB {
	return &DB{Dialect: d, sql: db}
}

// Pool returns the pgx pool, nil for database/sql connections.
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// SQL returns the database/sql handle, nil for pgx connections.
func (db *DB) SQL() *sql.DB { return db.sql }

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		return db.pool.Ping(ctx)
	}
	return db.sql.PingContext(ctx)
}

// Close releases the connections. The shared pgx pool stays open until
// ClosePool.
func (db *DB) Close() error {
	if db.sql != nil {
		return db.sql.Close()
	}
	return nil
}

// Tx is a transaction and the cursor executing inside it.
type Tx struct {
	cursor   runner.Cursor
	commit   func(context.Context) error
	rollback func(context.Context) error
}

// Cursor returns the cursor of the transaction.
func (tx *Tx) Cursor() runner.Cursor { return tx.cursor }

// Commit commits the transaction.
func (tx *Tx) Commit(ctx context.Context) error { return tx.commit(ctx) }

// Rollback aborts the transaction. It is safe to call after Commit.
func (tx *Tx) Rollback(ctx context.Context) error { return tx.rollback(ctx) }

// Begin starts a transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	if db.pool != nil {
		ptx, err := db.pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin: %w", err)
		}
		return &Tx{
			cursor: runner.PgxCursor(ptx),
			commit: ptx.Commit,
			rollback: func(ctx context.Context) error {
				if err := ptx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
					return err
				}
				return nil
			},
		}, nil
	}
	stx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{
		cursor: runner.SQLCursor(stx),
		commit: func(context.Context) error { return stx.Commit() },
		rollback: func(context.Context) error {
			if err := stx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				return err
			}
			return nil
		},
	}, nil
}

// InTx runs fn inside a transaction, committing when it returns nil.
func (db *DB) InTx(ctx context.Context, fn func(runner.Cursor) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx.Cursor()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
