package condition

import (
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/format"
)

// OrderByMap maps sort keys to the expressions they sort by. A key is a
// name, optionally prefixed with + (ascending) or - (descending). Nothing
// outside the map ever reaches ORDER BY.
type OrderByMap struct {
	Source string
	names  []string
	exprs  map[string]format.Fragment
}

func newOrderByMap(source string) *OrderByMap {
	return &OrderByMap{Source: source, exprs: map[string]format.Fragment{}}
}

func (o *OrderByMap) add(name string, expr format.Fragment) {
	if _, ok := o.exprs[name]; !ok {
		o.names = append(o.names, name)
	}
	o.exprs[name] = expr
}

// Names lists the sortable names in declaration order.
func (o *OrderByMap) Names() []string {
	return append([]string(nil), o.names...)
}

// Key resolves a single sort key.
func (o *OrderByMap) Key(key string) (format.Fragment, error) {
	name, desc := key, false
	switch {
	case strings.HasPrefix(key, "-"):
		name, desc = key[1:], true
	case strings.HasPrefix(key, "+"):
		name = key[1:]
	}
	expr, ok := o.exprs[name]
	if !ok {
		return format.Fragment{}, &dblayer.InvalidSortKeyError{Source: o.Source, Key: key}
	}
	if desc {
		expr.SQL += " DESC"
	}
	return expr, nil
}

// Resolve renders keys as an ORDER BY list without the keyword. No keys
// give an empty fragment.
func (o *OrderByMap) Resolve(keys []string) (format.Fragment, error) {
	frags := make([]format.Fragment, 0, len(keys))
	for _, k := range keys {
		f, err := o.Key(k)
		if err != nil {
			return format.Fragment{}, err
		}
		frags = append(frags, f)
	}
	if len(frags) == 0 {
		return format.Fragment{}, nil
	}
	return format.Join(", ", frags...), nil
}
