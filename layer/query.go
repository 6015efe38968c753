package layer

import (
	"context"
	"iter"

	"github.com/ridoystarlord/dblayer/query"
)

// QueryList returns the result rows of the named query. Filter conditions
// on post-aggregation results go to HAVING, the others to WHERE.
func (s *Session) QueryList(ctx context.Context, name string, filter query.Filter) ([]Record, error) {
	return collect(s.QueryIter(ctx, name, filter))
}

// QueryIter streams the result rows of the named query.
func (s *Session) QueryIter(ctx context.Context, name string, filter query.Filter) iter.Seq2[Record, error] {
	q, err := s.layer.query(name)
	if err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.iter(ctx, q.source, q.types, filter)
}

// QueryFind returns the first result row of the named query, or nil.
func (s *Session) QueryFind(ctx context.Context, name string, filter query.Filter) (Record, error) {
	q, err := s.layer.query(name)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, q.source, q.types, filter)
}

// QueryCount returns the number of rows QueryList would return.
func (s *Session) QueryCount(ctx context.Context, name string, filter query.Filter) (int64, error) {
	q, err := s.layer.query(name)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, q.source, filter)
}
