// Package runner executes formatted statements against a cursor: DDL
// batches that may tolerate failures, inserts with caller supplied keys
// and row fetching, with optional statement logging and profiling.
package runner

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/juju/loggo"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/generator"
)

var logger = loggo.GetLogger("dblayer.runner")

const (
	ignoreErrorsSavepoint   = "execute_statement_list_ignoring_errors"
	identityInsertSavepoint = "before_identity_insert"
)

// Options switch on the diagnostics of a runner.
type Options struct {
	LogSQL         bool
	LogResultRows  bool
	ProfileQueries bool

	// AnalyzeQueries logs the plan of every SELECT before running it.
	AnalyzeQueries bool
}

// Runner executes statements through one cursor. It is not safe for
// concurrent use.
type Runner struct {
	Cursor  Cursor
	Dialect dialect.Dialect
	Options Options
}

// New returns a runner for cursor.
func New(cursor Cursor, d dialect.Dialect, opts Options) *Runner {
	return &Runner{Cursor: cursor, Dialect: d, Options: opts}
}

func (r *Runner) trace(query string, args []any) func() {
	if r.Options.LogSQL {
		if len(args) > 0 {
			logger.Infof("%s %v", query, args)
		} else {
			logger.Infof("%s", query)
		}
	}
	if !r.Options.ProfileQueries {
		return func() {}
	}
	start := time.Now()
	return func() {
		logger.Infof("%v: %s", time.Since(start), firstLine(query))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// Exec runs a statement and returns the number of affected rows, -1 when
// the driver cannot tell.
func (r *Runner) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	done := r.trace(query, args)
	defer done()
	return r.Cursor.Exec(ctx, query, args...)
}

// Query runs a statement returning rows. The caller closes them.
func (r *Runner) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if r.Options.AnalyzeQueries {
		r.explain(ctx, query, args)
	}
	done := r.trace(query, args)
	defer done()
	return r.Cursor.Query(ctx, query, args...)
}

func (r *Runner) explainPrefix() string {
	switch r.Dialect.Name() {
	case dialect.Postgres:
		return "EXPLAIN ANALYZE "
	case dialect.SQLite:
		return "EXPLAIN QUERY PLAN "
	}
	return "EXPLAIN "
}

// explain logs the plan of a SELECT. Failures are logged and otherwise
// ignored.
func (r *Runner) explain(ctx context.Context, query string, args []any) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		return
	}
	rows, err := r.Cursor.Query(ctx, r.explainPrefix()+query, args...)
	if err != nil {
		logger.Warningf("explain failed: %v", err)
		return
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		logger.Warningf("explain failed: %v", err)
		return
	}
	lines := []string{"plan of " + firstLine(query)}
	for rows.Next() {
		values, err := scan(rows, len(cols))
		if err != nil {
			logger.Warningf("explain failed: %v", err)
			return
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprint(v)
		}
		lines = append(lines, "  "+strings.Join(parts, " "))
	}
	logger.Infof("%s", strings.Join(lines, "\n"))
}

func scan(rows Rows, n int) ([]any, error) {
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

// Iter runs a query and yields the values of each row in column order.
// Rows are closed on every exit path, including an early break.
func (r *Runner) Iter(ctx context.Context, query string, args ...any) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		rows, err := r.Query(ctx, query, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()
		cols, err := rows.Columns()
		if err != nil {
			yield(nil, err)
			return
		}
		for rows.Next() {
			values, err := scan(rows, len(cols))
			if err != nil {
				yield(nil, err)
				return
			}
			if r.Options.LogResultRows {
				logger.Infof("row: %v", values)
			}
			if !yield(values, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// FetchAll collects every row of a query.
func (r *Runner) FetchAll(ctx context.Context, query string, args ...any) ([][]any, error) {
	var out [][]any
	for values, err := range r.Iter(ctx, query, args...) {
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, nil
}

// FetchOne returns the first row of a query, nil when there is none.
func (r *Runner) FetchOne(ctx context.Context, query string, args ...any) ([]any, error) {
	for values, err := range r.Iter(ctx, query, args...) {
		return values, err
	}
	return nil, nil
}

// FetchInt returns the single integer value of a query such as COUNT(*).
func (r *Runner) FetchInt(ctx context.Context, query string, args ...any) (int64, error) {
	values, err := r.FetchOne(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%s: no rows", firstLine(query))
	}
	return toInt64(values[0])
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		var i int64
		_, err := fmt.Sscan(string(n), &i)
		return i, err
	case string:
		var i int64
		_, err := fmt.Sscan(n, &i)
		return i, err
	}
	return 0, fmt.Errorf("unexpected integer value %T", v)
}

// ExecuteStatementList runs stmts in order. Without ignoreErrors the first
// failure stops the batch with a DDLBatchError. With it, every statement
// runs under a savepoint: failures are rolled back, logged and skipped,
// except syntax errors, which still stop the batch.
func (r *Runner) ExecuteStatementList(ctx context.Context, stmts []string, ignoreErrors bool) error {
	sp := r.Dialect.QuoteIdent(ignoreErrorsSavepoint)
	for i, stmt := range stmts {
		if !ignoreErrors {
			if _, err := r.Exec(ctx, stmt); err != nil {
				return &dblayer.DDLBatchError{Statement: stmt, Index: i, Err: err}
			}
			continue
		}
		if _, err := r.Exec(ctx, dialect.Savepoint(sp)); err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
		if _, err := r.Exec(ctx, stmt); err != nil {
			if _, rbErr := r.Exec(ctx, dialect.RollbackToSavepoint(sp)); rbErr != nil {
				return fmt.Errorf("rollback to savepoint after %q: %w", firstLine(stmt), rbErr)
			}
			if dialect.IsSyntaxError(err) {
				return &dblayer.DDLBatchError{Statement: stmt, Index: i, Err: err}
			}
			logger.Warningf("ignored failure of %s: %v", firstLine(stmt), err)
			continue
		}
		if _, err := r.Exec(ctx, dialect.ReleaseSavepoint(sp)); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
	}
	return nil
}

// ExecutePlan runs the batches of p in order.
func (r *Runner) ExecutePlan(ctx context.Context, p generator.Plan) error {
	for _, b := range p {
		if err := r.ExecuteStatementList(ctx, b.Statements, b.IgnoreErrors); err != nil {
			return err
		}
	}
	return nil
}

// InsertIdentity runs an INSERT carrying an explicit primary key under a
// savepoint. A unique violation rolls back to the savepoint and returns a
// ConflictError, leaving the surrounding transaction usable. Other
// failures are rolled back the same way and returned unchanged.
func (r *Runner) InsertIdentity(ctx context.Context, table string, id any, query string, args ...any) error {
	sp := r.Dialect.QuoteIdent(identityInsertSavepoint)
	if _, err := r.Exec(ctx, dialect.Savepoint(sp)); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if _, err := r.Exec(ctx, query, args...); err != nil {
		if _, rbErr := r.Exec(ctx, dialect.RollbackToSavepoint(sp)); rbErr != nil {
			return fmt.Errorf("rollback to savepoint after insert into %s: %w", table, rbErr)
		}
		if dialect.IsUniqueViolation(err) {
			return &dblayer.ConflictError{Table: table, ID: id, Err: err}
		}
		return err
	}
	if _, err := r.Exec(ctx, dialect.ReleaseSavepoint(sp)); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// InsertSerial runs an INSERT leaving the primary key to the server and
// returns the generated key. Dialects with RETURNING read it from the
// statement itself; the others ask for the last insert id.
func (r *Runner) InsertSerial(ctx context.Context, query string, args ...any) (int64, error) {
	if r.Dialect.Returning() {
		return r.FetchInt(ctx, query, args...)
	}
	if _, err := r.Exec(ctx, query, args...); err != nil {
		return 0, err
	}
	return r.FetchInt(ctx, r.Dialect.LastInsertID())
}
