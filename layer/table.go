package layer

import (
	"context"
	"errors"
	"iter"
	"maps"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/query"
	"github.com/ridoystarlord/dblayer/schema"
)

func (s *Session) find(ctx context.Context, src *query.Source, types []*schema.Column, filter query.Filter) (Record, error) {
	sql, args, err := query.FormatOne(src, filter)
	if err != nil {
		return nil, err
	}
	row, err := s.runner.FetchOne(ctx, sql, args...)
	if err != nil || row == nil {
		return nil, err
	}
	return decodeRecord(src.Columns, types, row)
}

func (s *Session) iter(ctx context.Context, src *query.Source, types []*schema.Column, filter query.Filter) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		sql, args, err := query.Format(src, filter)
		if err != nil {
			yield(nil, err)
			return
		}
		for row, err := range s.runner.Iter(ctx, sql, args...) {
			if err != nil {
				yield(nil, err)
				return
			}
			rec, err := decodeRecord(src.Columns, types, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func collect(seq iter.Seq2[Record, error]) ([]Record, error) {
	var out []Record
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Session) count(ctx context.Context, src *query.Source, filter query.Filter) (int64, error) {
	sql, args, err := query.FormatCount(src, filter)
	if err != nil {
		return 0, err
	}
	return s.runner.FetchInt(ctx, sql, args...)
}

// Get returns the row of the table with the given primary key, or nil
// when there is none.
func (s *Session) Get(ctx context.Context, name string, id any) (Record, error) {
	t, err := s.layer.table(name)
	if err != nil {
		return nil, err
	}
	pk, err := t.primaryKey("get")
	if err != nil {
		return nil, err
	}
	key, err := format.Bind(pk, id)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, t.source, t.types, query.Filter{
		Where: schema.Equal(schema.C(pk.Name), schema.Lit(key)),
	})
}

// Find returns the first row matching filter, or nil.
func (s *Session) Find(ctx context.Context, name string, filter query.Filter) (Record, error) {
	t, err := s.layer.table(name)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, t.source, t.types, filter)
}

// List returns the rows matching filter.
func (s *Session) List(ctx context.Context, name string, filter query.Filter) ([]Record, error) {
	return collect(s.Iter(ctx, name, filter))
}

// Iter streams the rows matching filter. The result set is closed when
// the loop ends, including on break.
func (s *Session) Iter(ctx context.Context, name string, filter query.Filter) iter.Seq2[Record, error] {
	t, err := s.layer.table(name)
	if err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.iter(ctx, t.source, t.types, filter)
}

// Count returns the number of rows List would return for filter.
func (s *Session) Count(ctx context.Context, name string, filter query.Filter) (int64, error) {
	t, err := s.layer.table(name)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, t.source, filter)
}

func (s *Session) writableTable(name string) (*table, error) {
	t, err := s.layer.table(name)
	if err != nil {
		return nil, err
	}
	if err := writable(t.Table); err != nil {
		return nil, err
	}
	return t, nil
}

// Add inserts rec and returns its primary key, nil for tables without one.
//
// A serial key left out of rec is generated by the server. Any other key
// left out is drawn from Options.NewID; a conflict on a drawn key is
// retried up to Options.MaxInsertRetry times. A key supplied in rec is
// inserted as given and a conflict on it is returned as ConflictError.
func (s *Session) Add(ctx context.Context, name string, rec Record) (any, error) {
	t, err := s.writableTable(name)
	if err != nil {
		return nil, err
	}
	if err := checkFields(t.Table, rec); err != nil {
		return nil, err
	}
	pk := t.PrimaryKey()
	for _, c := range t.WritableColumns() {
		if c == pk || !c.Required() {
			continue
		}
		if _, ok := rec[c.Name]; !ok {
			return nil, dblayer.NewFormatError(t.Name, "missing required field %s", c.Name)
		}
	}
	d := s.layer.Dialect

	switch {
	case pk == nil:
		names, args, err := bindFields(t.WritableColumns(), rec)
		if err != nil {
			return nil, err
		}
		_, err = s.runner.Exec(ctx, query.Insert(d, t.Table, names, ""), args...)
		return nil, err

	case rec[pk.Name] != nil:
		names, args, err := bindFields(t.AccessibleColumns(), rec)
		if err != nil {
			return nil, err
		}
		id, err := format.Bind(pk, rec[pk.Name])
		if err != nil {
			return nil, err
		}
		if err := s.runner.InsertIdentity(ctx, t.Name, id, query.Insert(d, t.Table, names, ""), args...); err != nil {
			return nil, err
		}
		return id, nil

	case pk.Serial:
		names, args, err := bindFields(t.WritableColumns(), rec)
		if err != nil {
			return nil, err
		}
		return s.runner.InsertSerial(ctx, query.Insert(d, t.Table, names, pk.Name), args...)
	}

	fields := maps.Clone(rec)
	var lastErr error
	for attempt := 0; attempt < s.layer.options.MaxInsertRetry; attempt++ {
		id, err := s.layer.options.NewID()
		if err != nil {
			return nil, err
		}
		fields[pk.Name] = id
		names, args, err := bindFields(t.AccessibleColumns(), fields)
		if err != nil {
			return nil, err
		}
		err = s.runner.InsertIdentity(ctx, t.Name, id, query.Insert(d, t.Table, names, ""), args...)
		if err == nil {
			return id, nil
		}
		if !dialect.IsPrimaryKeyViolation(err, t.Name, pk.Name) {
			// Another unique constraint failed; a new key cannot help.
			var conflict *dblayer.ConflictError
			if errors.As(err, &conflict) {
				return nil, conflict.Err
			}
			return nil, err
		}
		logger.Debugf("generated key %d of %s is taken, retrying", id, t.Name)
		lastErr = err
	}
	return nil, lastErr
}

// AddList inserts the records in order and returns their keys. It stops
// at the first failure.
func (s *Session) AddList(ctx context.Context, name string, recs []Record) ([]any, error) {
	ids := make([]any, 0, len(recs))
	for _, rec := range recs {
		id, err := s.Add(ctx, name, rec)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Update sets the fields of rec in the row identified by its primary key
// and returns the number of rows changed.
func (s *Session) Update(ctx context.Context, name string, rec Record) (int64, error) {
	t, err := s.writableTable(name)
	if err != nil {
		return 0, err
	}
	pk, err := t.primaryKey("update")
	if err != nil {
		return 0, err
	}
	if err := checkFields(t.Table, rec); err != nil {
		return 0, err
	}
	if rec[pk.Name] == nil {
		return 0, dblayer.NewFormatError(t.Name, "update requires field %s", pk.Name)
	}
	id, err := format.Bind(pk, rec[pk.Name])
	if err != nil {
		return 0, err
	}
	fields := maps.Clone(rec)
	delete(fields, pk.Name)
	names, args, err := bindFields(t.AccessibleColumns(), fields)
	if err != nil {
		return 0, err
	}
	sql, err := query.Update(s.layer.Dialect, t.Table, names)
	if err != nil {
		return 0, err
	}
	return s.runner.Exec(ctx, sql, append(args, id)...)
}

// UpdateList updates the records in order, stopping at the first failure.
func (s *Session) UpdateList(ctx context.Context, name string, recs []Record) error {
	for _, rec := range recs {
		if _, err := s.Update(ctx, name, rec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the row with the given primary key and returns the
// number of rows deleted.
func (s *Session) Delete(ctx context.Context, name string, id any) (int64, error) {
	t, err := s.writableTable(name)
	if err != nil {
		return 0, err
	}
	pk, err := t.primaryKey("delete")
	if err != nil {
		return 0, err
	}
	key, err := format.Bind(pk, id)
	if err != nil {
		return 0, err
	}
	return s.runner.Exec(ctx, t.deleteSQL, key)
}

// DeleteList removes the rows with the given keys.
func (s *Session) DeleteList(ctx context.Context, name string, ids []any) (int64, error) {
	var total int64
	for _, id := range ids {
		n, err := s.Delete(ctx, name, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DeleteWhere removes the rows matching the where part of filter.
func (s *Session) DeleteWhere(ctx context.Context, name string, filter query.Filter) (int64, error) {
	t, err := s.writableTable(name)
	if err != nil {
		return 0, err
	}
	sql, args, err := query.DeleteWhere(t.source, t.Table, filter)
	if err != nil {
		return 0, err
	}
	return s.runner.Exec(ctx, sql, args...)
}

// Truncate removes every row of the table.
func (s *Session) Truncate(ctx context.Context, name string) error {
	t, err := s.writableTable(name)
	if err != nil {
		return err
	}
	stmts := s.layer.Generator.Truncate([]*schema.Table{t.Table})
	return s.runner.ExecuteStatementList(ctx, stmts, false)
}

