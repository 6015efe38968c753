// Package layer is the data access layer generated from a database model.
// New compiles every table and query once; the resulting Layer is
// immutable and may be shared. Sessions run the operations through one
// cursor and belong to a single goroutine.
package layer

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/juju/loggo"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/query"
	"github.com/ridoystarlord/dblayer/runner"
	"github.com/ridoystarlord/dblayer/schema"
)

var logger = loggo.GetLogger("dblayer.layer")

// DefaultMaxInsertRetry bounds the attempts to insert under a generated key.
const DefaultMaxInsertRetry = 10

// Options tune a layer.
type Options struct {
	Runner runner.Options

	// MaxInsertRetry is the number of generated keys tried before a
	// conflict is returned.
	MaxInsertRetry int

	// NewID generates keys for tables without a serial primary key when
	// the record has none. It defaults to RandomID.
	NewID func() (int64, error)
}

// RandomID returns a random key in [2^62, 2^63).
func RandomID() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate id: %w", err)
	}
	return int64(binary.BigEndian.Uint64(b[:])>>2 | 1<<62), nil
}

type table struct {
	*schema.Table
	source *query.Source
	types  []*schema.Column

	// pk is nil for tables without a primary key; the id based
	// operations of such tables fail with a MissingPrimaryKeyError.
	pk        *schema.Column
	deleteSQL string
}

type querySource struct {
	source *query.Source
	types  []*schema.Column
}

// Layer holds the compiled artifacts of a database model for one dialect.
type Layer struct {
	Database  *schema.Database
	Dialect   dialect.Dialect
	Generator *generator.Generator

	options Options
	tables  map[string]*table
	queries map[string]*querySource
}

// New compiles db for d. Structural problems such as an invalid default
// order surface here.
func New(db *schema.Database, d dialect.Dialect, opts Options) (*Layer, error) {
	if opts.MaxInsertRetry <= 0 {
		opts.MaxInsertRetry = DefaultMaxInsertRetry
	}
	if opts.NewID == nil {
		opts.NewID = RandomID
	}
	l := &Layer{
		Database:  db,
		Dialect:   d,
		Generator: generator.New(d),
		options:   opts,
		tables:    make(map[string]*table, len(db.Tables)),
		queries:   make(map[string]*querySource, len(db.Queries)),
	}
	for _, t := range db.Tables {
		src, err := query.TableSource(t, d)
		if err != nil {
			return nil, fmt.Errorf("compile table %s: %w", t.Name, err)
		}
		tt := &table{Table: t, source: src, types: t.AccessibleColumns(), pk: t.PrimaryKey()}
		switch {
		case tt.pk == nil:
			logger.Debugf("table %s has no primary key: get, update and delete by id are unavailable", t.Name)
		case t.Writable():
			if tt.deleteSQL, err = query.Delete(d, t); err != nil {
				return nil, fmt.Errorf("compile table %s: %w", t.Name, err)
			}
		}
		l.tables[t.Name] = tt
	}
	for _, q := range db.Queries {
		src, err := query.QuerySource(q, d)
		if err != nil {
			return nil, fmt.Errorf("compile query %s: %w", q.Name, err)
		}
		types := make([]*schema.Column, len(q.Results))
		for i, r := range q.Results {
			types[i] = r.Type
		}
		l.queries[q.Name] = &querySource{source: src, types: types}
	}
	logger.Debugf("compiled %d tables and %d queries for %s", len(l.tables), len(l.queries), d.Name())
	return l, nil
}

func (l *Layer) table(name string) (*table, error) {
	t, ok := l.tables[name]
	if !ok {
		return nil, dblayer.NewFormatError(name, "unknown table")
	}
	return t, nil
}

func (l *Layer) query(name string) (*querySource, error) {
	q, ok := l.queries[name]
	if !ok {
		return nil, dblayer.NewFormatError(name, "unknown query")
	}
	return q, nil
}

// KeylessTables lists the tables without a primary key, in declaration
// order. Get, Update and Delete are not available for them.
func (l *Layer) KeylessTables() []string {
	var names []string
	for _, t := range l.Database.Tables {
		if l.tables[t.Name].pk == nil {
			names = append(names, t.Name)
		}
	}
	return names
}

// Source returns the compiled SELECT source of a table or query.
func (l *Layer) Source(name string) (*query.Source, error) {
	if t, ok := l.tables[name]; ok {
		return t.source, nil
	}
	q, err := l.query(name)
	if err != nil {
		return nil, err
	}
	return q.source, nil
}

// Session runs operations through c.
func (l *Layer) Session(c runner.Cursor) *Session {
	return &Session{layer: l, runner: runner.New(c, l.Dialect, l.options.Runner)}
}

// Session executes operations through one cursor. It is not safe for
// concurrent use.
type Session struct {
	layer  *Layer
	runner *runner.Runner
}

// Runner exposes the statement runner of the session.
func (s *Session) Runner() *runner.Runner {
	return s.runner
}
