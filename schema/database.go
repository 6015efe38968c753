package schema

import (
	"fmt"
	"regexp"

	"github.com/ridoystarlord/dblayer"
)

// MaxIdentifierLength is the PostgreSQL identifier limit.
const MaxIdentifierLength = 63

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return dblayer.NewFormatError(name, "invalid identifier")
	}
	if len(name) > MaxIdentifierLength {
		return dblayer.NewFormatError(name, "identifier longer than %d characters", MaxIdentifierLength)
	}
	return nil
}

// Database owns the tables, queries and procedures of one schema. It is
// assembled once by NewDatabase and never changed afterwards.
type Database struct {
	Name       string
	Tables     []*Table
	Queries    []*Query
	Procedures []*Procedure

	tables     map[string]*Table
	queries    map[string]*Query
	procedures map[string]*Procedure
}

// NewDatabase binds the objects together and checks the structural rules:
// unique valid names, at most one primary key per table, foreign keys
// pointing to a table declared earlier (or the table itself), resolvable
// constraint, index, trigger and query references.
func NewDatabase(name string, tables []*Table, queries []*Query, procedures []*Procedure) (*Database, error) {
	db := &Database{
		Name:       name,
		Tables:     tables,
		Queries:    queries,
		Procedures: procedures,
		tables:     make(map[string]*Table, len(tables)),
		queries:    make(map[string]*Query, len(queries)),
		procedures: make(map[string]*Procedure, len(procedures)),
	}

	for _, p := range procedures {
		if err := checkIdentifier(p.Name); err != nil {
			return nil, fmt.Errorf("procedure: %w", err)
		}
		if _, dup := db.procedures[p.Name]; dup {
			return nil, dblayer.NewFormatError(p.Name, "duplicate procedure")
		}
		if p.Language == "" {
			return nil, dblayer.NewFormatError(p.Name, "procedure has no language")
		}
		db.procedures[p.Name] = p
	}

	for _, t := range tables {
		if err := db.bindTable(t); err != nil {
			return nil, err
		}
	}

	for _, q := range queries {
		if err := checkIdentifier(q.Name); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		if _, dup := db.queries[q.Name]; dup {
			return nil, dblayer.NewFormatError(q.Name, "duplicate query")
		}
		if _, clash := db.tables[q.Name]; clash {
			return nil, dblayer.NewFormatError(q.Name, "query name clashes with a table")
		}
		if err := q.bind(db); err != nil {
			return nil, err
		}
		db.queries[q.Name] = q
	}
	return db, nil
}

func (db *Database) bindTable(t *Table) error {
	if err := checkIdentifier(t.Name); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	if _, dup := db.tables[t.Name]; dup {
		return dblayer.NewFormatError(t.Name, "duplicate table")
	}
	t.database = db
	t.primaryKey = nil
	// Registered before the columns so self references resolve.
	db.tables[t.Name] = t

	seen := map[string]bool{}
	for _, c := range t.Columns {
		if err := checkIdentifier(c.Name); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		if seen[c.Name] {
			return dblayer.NewFormatError(t.Name, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		c.table = t

		switch c.Kind {
		case KindPrimaryKey:
			if t.primaryKey != nil {
				return dblayer.NewFormatError(t.Name, "more than one primary key: %q and %q", t.primaryKey.Name, c.Name)
			}
			t.primaryKey = c
		case KindForeignKey:
			ref := db.tables[c.References]
			if ref == nil {
				return dblayer.NewFormatError(t.Name, "foreign key %q references unknown or later table %q", c.Name, c.References)
			}
			if ref != t && ref.primaryKey == nil {
				return &dblayer.MissingPrimaryKeyError{Table: ref.Name, Operation: "foreign key " + t.Name + "." + c.Name}
			}
			c.referenced = ref
		case KindSearchDocument:
			if len(c.Sources) == 0 {
				return dblayer.NewFormatError(t.Name, "search document %q has no source columns", c.Name)
			}
		case KindCustom:
			if c.SQLType == "" {
				return dblayer.NewFormatError(t.Name, "custom column %q has no SQL type", c.Name)
			}
		case "":
			return dblayer.NewFormatError(t.Name, "column %q has no kind", c.Name)
		}
	}

	// A self referencing foreign key declared before the primary key.
	for _, c := range t.Columns {
		if c.Kind == KindForeignKey && c.referenced == t && t.primaryKey == nil {
			return &dblayer.MissingPrimaryKeyError{Table: t.Name, Operation: "foreign key " + c.Name}
		}
	}

	for _, c := range t.Columns {
		for _, src := range c.Sources {
			sc := t.Column(src)
			if sc == nil || !sc.Kind.IsText() {
				return dblayer.NewFormatError(t.Name, "search document %q source %q is not a text column", c.Name, src)
			}
		}
	}

	for _, con := range t.Constraints {
		if err := checkIdentifier(con.Name); err != nil {
			return fmt.Errorf("table %s constraint: %w", t.Name, err)
		}
		if err := t.checkColumns(con.Columns); err != nil {
			return err
		}
		if con.Kind == CheckConstraint {
			if con.Check == nil {
				return dblayer.NewFormatError(t.Name, "check constraint %q has no expression", con.Name)
			}
			for _, ref := range ColumnRefs(con.Check) {
				if _, err := t.Resolve(ref); err != nil {
					return err
				}
			}
		}
	}
	for _, idx := range t.Indexes {
		if err := checkIdentifier(idx.Name); err != nil {
			return fmt.Errorf("table %s index: %w", t.Name, err)
		}
		if len(idx.Columns) == 0 {
			return dblayer.NewFormatError(t.Name, "index %q has no columns", idx.Name)
		}
		if err := t.checkColumns(idx.Columns); err != nil {
			return err
		}
	}
	for _, tr := range t.Triggers {
		if err := checkIdentifier(tr.Name); err != nil {
			return fmt.Errorf("table %s trigger: %w", t.Name, err)
		}
		if db.procedures[tr.Procedure] == nil {
			return dblayer.NewFormatError(t.Name, "trigger %q calls unknown procedure %q", tr.Name, tr.Procedure)
		}
		tr.table = t
	}
	return nil
}

func (t *Table) checkColumns(names []string) error {
	for _, n := range names {
		if t.Column(n) == nil {
			return dblayer.NewFormatError(t.Name, "unknown column %q", n)
		}
	}
	return nil
}

// Table looks up a table by name.
func (db *Database) Table(name string) *Table {
	return db.tables[name]
}

// Query looks up a query by name.
func (db *Database) Query(name string) *Query {
	return db.queries[name]
}

// Procedure looks up a procedure by name.
func (db *Database) Procedure(name string) *Procedure {
	return db.procedures[name]
}

// CreatableTables returns the tables receiving DDL, in declaration order.
func (db *Database) CreatableTables() []*Table {
	var out []*Table
	for _, t := range db.Tables {
		if t.Creatable() {
			out = append(out, t)
		}
	}
	return out
}

// WritableTables returns the tables accepting writes, in declaration order.
func (db *Database) WritableTables() []*Table {
	var out []*Table
	for _, t := range db.Tables {
		if t.Writable() {
			out = append(out, t)
		}
	}
	return out
}

// Languages lists the procedure languages in order of first use.
func (db *Database) Languages() []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range db.Procedures {
		if !seen[p.Language] {
			seen[p.Language] = true
			out = append(out, p.Language)
		}
	}
	return out
}

// SortByReferences returns tables in input order except that a table moves
// behind the tables it references, as NewDatabase requires. Reference
// cycles keep their input order.
func SortByReferences(tables []*Table) []*Table {
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	out := make([]*Table, 0, len(tables))
	seen := map[string]bool{}
	var visit func(t *Table)
	visit = func(t *Table) {
		if seen[t.Name] {
			return
		}
		seen[t.Name] = true
		for _, c := range t.Columns {
			if ref, ok := byName[c.References]; ok && ref != t {
				visit(ref)
			}
		}
		out = append(out, t)
	}
	for _, t := range tables {
		visit(t)
	}
	return out
}
