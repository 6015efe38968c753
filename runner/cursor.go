package runner

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Rows is a result set being read.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Cursor executes statements on one connection, usually inside a
// transaction owned by the caller. Savepoints only work when every call
// reaches the same connection.
type Cursor interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// SQLQuerier is implemented by *sql.Tx, *sql.Conn and *sql.DB.
type SQLQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlCursor struct {
	q SQLQuerier
}

// SQLCursor adapts a database/sql transaction or connection.
func SQLCursor(q SQLQuerier) Cursor {
	return sqlCursor{q: q}
}

func (c sqlCursor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot count; the statement itself succeeded.
		return -1, nil
	}
	return n, nil
}

func (c sqlCursor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PgxQuerier is implemented by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxCursor struct {
	q PgxQuerier
}

// PgxCursor adapts a pgx transaction or connection.
func PgxCursor(q PgxQuerier) Cursor {
	return pgxCursor{q: q}
}

func (c pgxCursor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c pgxCursor) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rows}, nil
}

type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Columns() ([]string, error) {
	fields := r.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}
