// Package loader builds a schema.Database from a YAML schema file or from
// tagged Go structs.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// File is the YAML schema document.
type File struct {
	Name       string          `yaml:"name"`
	Tables     []yamlTable     `yaml:"tables"`
	Queries    []yamlQuery     `yaml:"queries,omitempty"`
	Procedures []yamlProcedure `yaml:"procedures,omitempty"`
}

type yamlTable struct {
	Name     string        `yaml:"name"`
	Doc      string        `yaml:"doc,omitempty"`
	External bool          `yaml:"external,omitempty"`
	ReadOnly bool          `yaml:"read_only,omitempty"`
	Columns  []yamlColumn  `yaml:"columns"`
	Unique   []yamlIndex   `yaml:"unique,omitempty"`
	Checks   []yamlCheck   `yaml:"checks,omitempty"`
	Indexes  []yamlIndex   `yaml:"indexes,omitempty"`
	Triggers []yamlTrigger `yaml:"triggers,omitempty"`
}

type yamlColumn struct {
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Doc           string   `yaml:"doc,omitempty"`
	Null          bool     `yaml:"nullable,omitempty"`
	Default       any      `yaml:"default,omitempty"`
	CustomDefault string   `yaml:"custom_default,omitempty"`
	Hidden        bool     `yaml:"hidden,omitempty"`
	MaxLength     int      `yaml:"max_length,omitempty"`
	Digits        int      `yaml:"digits,omitempty"`
	Double        bool     `yaml:"double,omitempty"`
	Precision     int      `yaml:"precision,omitempty"`
	Scale         int      `yaml:"scale,omitempty"`
	Serial        bool     `yaml:"serial,omitempty"`
	References    string   `yaml:"references,omitempty"`
	OnDelete      string   `yaml:"on_delete,omitempty"`
	OnUpdate      string   `yaml:"on_update,omitempty"`
	Sources       []string `yaml:"sources,omitempty"`
	SQLType       string   `yaml:"sql_type,omitempty"`
}

type yamlIndex struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

type yamlCheck struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
}

type yamlTrigger struct {
	Name       string `yaml:"name"`
	Timing     string `yaml:"timing"`
	Event      string `yaml:"event"`
	Scope      string `yaml:"scope,omitempty"`
	Procedure  string `yaml:"procedure"`
	Parameters []any  `yaml:"parameters,omitempty"`
}

type yamlProcedure struct {
	Name      string   `yaml:"name"`
	Language  string   `yaml:"language"`
	Arguments []string `yaml:"arguments,omitempty"`
	Result    string   `yaml:"result"`
	Body      string   `yaml:"body"`
}

type yamlQuery struct {
	Name     string       `yaml:"name"`
	Doc      string       `yaml:"doc,omitempty"`
	From     []yamlFrom   `yaml:"from"`
	Select   []yamlResult `yaml:"select"`
	Where    []yamlResult `yaml:"where,omitempty"`
	Having   []yamlResult `yaml:"having,omitempty"`
	GroupBy  []yamlExpr   `yaml:"group_by,omitempty"`
	OrderBy  []string     `yaml:"order_by,omitempty"`
	Sortable []string     `yaml:"sortable,omitempty"`
}

type yamlFrom struct {
	Alias      string `yaml:"alias"`
	Table      string `yaml:"table"`
	Referer    string `yaml:"referer,omitempty"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
}

type yamlResult struct {
	Name string      `yaml:"name"`
	Expr yamlExpr    `yaml:"expr"`
	Type *yamlColumn `yaml:"type,omitempty"`
}

// yamlExpr is an expression written either as a column reference
// ("alias.column") or as one of the mappings {fn: count, args: [...]},
// {lit: value} and {sql: "...", args: [...]}.
type yamlExpr struct {
	schema.Expr
}

func (e *yamlExpr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var ref string
		if err := n.Decode(&ref); err != nil {
			return err
		}
		if alias, col, ok := strings.Cut(ref, "."); ok {
			e.Expr = schema.Col(alias, col)
		} else {
			e.Expr = schema.C(ref)
		}
		return nil
	}
	var m struct {
		Fn   string     `yaml:"fn"`
		Args []yamlExpr `yaml:"args"`
		Lit  any        `yaml:"lit"`
		SQL  string     `yaml:"sql"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	switch {
	case m.Fn != "":
		args := make([]schema.Expr, len(m.Args))
		for i, a := range m.Args {
			args[i] = a.Expr
		}
		e.Expr = schema.Fn(m.Fn, args...)
	case m.SQL != "":
		var raw struct {
			Args []any `yaml:"args"`
		}
		if err := n.Decode(&raw); err != nil {
			return err
		}
		e.Expr = schema.SQL(m.SQL, raw.Args...)
	default:
		e.Expr = schema.Lit(m.Lit)
	}
	return nil
}

func (c yamlColumn) column() (*schema.Column, error) {
	col := &schema.Column{
		Name:          c.Name,
		Kind:          schema.ColumnKind(c.Type),
		Doc:           c.Doc,
		Null:          c.Null,
		CustomDefault: c.CustomDefault,
		Hidden:        c.Hidden,
		MaxLength:     c.MaxLength,
		Digits:        c.Digits,
		Double:        c.Double,
		Precision:     c.Precision,
		Scale:         c.Scale,
		Serial:        c.Serial,
		References:    c.References,
		OnDelete:      c.OnDelete,
		OnUpdate:      c.OnUpdate,
		Sources:       c.Sources,
		SQLType:       c.SQLType,
	}
	if col.Kind == schema.KindSearchDocument {
		col.Null = true
	}
	if c.Default != nil {
		v, err := format.Bind(col, c.Default)
		if err != nil {
			return nil, err
		}
		col.Default = v
	}
	return col, nil
}

func (t yamlTable) table() (*schema.Table, error) {
	cols := make([]*schema.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		col, err := c.column()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		cols = append(cols, col)
	}
	tbl := schema.NewTable(t.Name, cols...).WithDoc(t.Doc)
	tbl.External = t.External
	tbl.ReadOnly = t.ReadOnly
	for _, u := range t.Unique {
		tbl.Unique(u.Name, u.Columns...)
	}
	for _, c := range t.Checks {
		tbl.Check(c.Name, schema.SQL(c.SQL))
	}
	for _, idx := range t.Indexes {
		if idx.Unique {
			tbl.UniqueIndex(idx.Name, idx.Columns...)
		} else {
			tbl.Index(idx.Name, idx.Columns...)
		}
	}
	for _, tr := range t.Triggers {
		scope := schema.TriggerScope(strings.ToUpper(tr.Scope))
		if scope == "" {
			scope = schema.ForEachRow
		}
		params := make([]schema.Expr, len(tr.Parameters))
		for i, p := range tr.Parameters {
			params[i] = schema.Lit(p)
		}
		tbl.Trigger(tr.Name,
			schema.TriggerTiming(strings.ToUpper(tr.Timing)),
			schema.TriggerEvent(strings.ToUpper(tr.Event)),
			scope, tr.Procedure, params...)
	}
	return tbl, nil
}

func (q yamlQuery) query() (*schema.Query, error) {
	out := schema.NewQuery(q.Name).WithDoc(q.Doc)
	for _, f := range q.From {
		if f.Referer == "" {
			out.From(f.Alias, f.Table)
		} else {
			out.Join(f.Alias, f.Table, f.Referer, f.ForeignKey)
		}
	}
	typ := func(r yamlResult) (*schema.Column, error) {
		if r.Type == nil {
			return nil, nil
		}
		c := *r.Type
		if c.Name == "" {
			c.Name = r.Name
		}
		return c.column()
	}
	for _, r := range q.Select {
		t, err := typ(r)
		if err != nil {
			return nil, err
		}
		out.SelectExpr(r.Name, r.Expr.Expr, t)
	}
	for _, r := range q.Where {
		t, err := typ(r)
		if err != nil {
			return nil, err
		}
		out.Where(r.Name, r.Expr.Expr, t)
	}
	for _, r := range q.Having {
		t, err := typ(r)
		if err != nil {
			return nil, err
		}
		out.Having(r.Name, r.Expr.Expr, t)
	}
	group := make([]schema.Expr, len(q.GroupBy))
	for i, g := range q.GroupBy {
		group[i] = g.Expr
	}
	if len(group) > 0 {
		out.Group(group...)
	}
	out.Order(q.OrderBy...)
	out.Sortable(q.Sortable...)
	return out, nil
}

// Database assembles the schema described by f.
func (f *File) Database() (*schema.Database, error) {
	tables, err := f.tables()
	if err != nil {
		return nil, err
	}
	queries := make([]*schema.Query, 0, len(f.Queries))
	for _, q := range f.Queries {
		query, err := q.query()
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		queries = append(queries, query)
	}
	procs := make([]*schema.Procedure, 0, len(f.Procedures))
	for _, p := range f.Procedures {
		procs = append(procs, &schema.Procedure{
			Name:      p.Name,
			Language:  p.Language,
			Arguments: p.Arguments,
			Result:    p.Result,
			Body:      strings.TrimRight(p.Body, "\n"),
		})
	}
	name := f.Name
	if name == "" {
		name = "default"
	}
	return schema.NewDatabase(name, tables, queries, procs)
}

func (f *File) tables() ([]*schema.Table, error) {
	tables := make([]*schema.Table, 0, len(f.Tables))
	for _, t := range f.Tables {
		tbl, err := t.table()
		if err != nil {
			return nil, err
		}
		tables = append(tables, tbl)
	}
	return tables, nil
}

// LoadYAMLTables reads the tables of the schema document at filename
// without binding them, so a linter can report every problem at once.
func LoadYAMLTables(filename string) ([]*schema.Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	return f.tables()
}

// ParseYAML reads a schema document.
func ParseYAML(data []byte) (*schema.Database, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	return f.Database()
}

// LoadYAML reads the schema document at filename.
func LoadYAML(filename string) (*schema.Database, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return ParseYAML(data)
}

// MarshalTables renders tables as a schema document. Check constraints
// and triggers are written only when they are plain SQL and literals.
func MarshalTables(name string, tables []*schema.Table) ([]byte, error) {
	f := File{Name: name}
	for _, t := range tables {
		yt := yamlTable{Name: t.Name, Doc: t.Doc, External: t.External, ReadOnly: t.ReadOnly}
		for _, c := range t.Columns {
			yt.Columns = append(yt.Columns, yamlColumn{
				Name:          c.Name,
				Type:          string(c.Kind),
				Doc:           c.Doc,
				Null:          c.Null && c.Kind != schema.KindSearchDocument,
				Default:       c.Default,
				CustomDefault: c.CustomDefault,
				Hidden:        c.Hidden,
				MaxLength:     c.MaxLength,
				Digits:        c.Digits,
				Double:        c.Double,
				Precision:     c.Precision,
				Scale:         c.Scale,
				Serial:        c.Serial,
				References:    c.References,
				OnDelete:      c.OnDelete,
				OnUpdate:      c.OnUpdate,
				Sources:       c.Sources,
				SQLType:       c.SQLType,
			})
		}
		for _, con := range t.Constraints {
			switch con.Kind {
			case schema.UniqueConstraint:
				yt.Unique = append(yt.Unique, yamlIndex{Name: con.Name, Columns: con.Columns})
			case schema.CheckConstraint:
				if raw, ok := con.Check.(schema.Raw); ok && len(raw.Args) == 0 {
					yt.Checks = append(yt.Checks, yamlCheck{Name: con.Name, SQL: raw.SQL})
				}
			}
		}
		for _, idx := range t.Indexes {
			yt.Indexes = append(yt.Indexes, yamlIndex{Name: idx.Name, Columns: idx.Columns, Unique: idx.Unique})
		}
		f.Tables = append(f.Tables, yt)
	}
	return yaml.Marshal(&f)
}
