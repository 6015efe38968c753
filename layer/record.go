package layer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// Record holds the accessible column values of a table row, or the
// results of a query row, by name.
type Record map[string]any

// ID returns the value stored under the primary key of t.
func (r Record) ID(t *schema.Table) any {
	if pk := t.PrimaryKey(); pk != nil {
		return r[pk.Name]
	}
	return nil
}

func decodeRecord(names []string, types []*schema.Column, values []any) (Record, error) {
	if len(values) != len(names) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(names))
	}
	rec := make(Record, len(names))
	for i, name := range names {
		v, err := format.Decode(types[i], values[i])
		if err != nil {
			return nil, err
		}
		rec[name] = v
	}
	return rec, nil
}

// checkFields rejects names that are not accessible columns of t.
func checkFields(t *schema.Table, rec Record) error {
	var unknown []string
	for name := range rec {
		c := t.Column(name)
		if c == nil || !c.Accessible() {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return dblayer.NewFormatError(t.Name, "unknown fields %s", strings.Join(unknown, ", "))
	}
	return nil
}

// bindFields binds the values of rec for columns in declaration order,
// skipping columns rec does not mention.
func bindFields(columns []*schema.Column, rec Record) ([]string, []any, error) {
	var names []string
	var args []any
	for _, c := range columns {
		v, ok := rec[c.Name]
		if !ok {
			continue
		}
		bound, err := format.Bind(c, v)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, c.Name)
		args = append(args, bound)
	}
	return names, args, nil
}

func writable(t *schema.Table) error {
	if !t.Writable() {
		return fmt.Errorf("%w: %s", dblayer.ErrNotWritable, t.Name)
	}
	return nil
}

func (t *table) primaryKey(operation string) (*schema.Column, error) {
	if t.pk == nil {
		return nil, &dblayer.MissingPrimaryKeyError{Table: t.Name, Operation: operation}
	}
	return t.pk, nil
}
