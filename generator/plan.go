package generator

import (
	"slices"

	"github.com/ridoystarlord/dblayer/schema"
)

// Batch is a list of statements executed together. Failures inside an
// IgnoreErrors batch are rolled back per statement and skipped.
type Batch struct {
	Statements   []string
	IgnoreErrors bool
}

// Plan is an ordered list of batches.
type Plan []Batch

// Statements flattens the plan.
func (p Plan) Statements() []string {
	var out []string
	for _, b := range p {
		out = append(out, b.Statements...)
	}
	return out
}

func (p Plan) add(stmts []string, ignoreErrors bool) Plan {
	if len(stmts) == 0 {
		return p
	}
	return append(p, Batch{Statements: stmts, IgnoreErrors: ignoreErrors})
}

// CreateAllTables creates the creatable tables of db in declaration order,
// each followed by its indexes.
func (g *Generator) CreateAllTables(db *schema.Database) (Plan, error) {
	var stmts []string
	for _, t := range db.CreatableTables() {
		s, err := g.CreateTable(t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	return Plan{}.add(stmts, false), nil
}

// DropAllTables drops the creatable tables of db in reverse declaration
// order so referencing tables go first.
func (g *Generator) DropAllTables(db *schema.Database, cascade bool) Plan {
	var stmts []string
	for _, t := range slices.Backward(db.CreatableTables()) {
		stmts = append(stmts, g.DropTable(t, cascade)...)
	}
	return Plan{}.add(stmts, false)
}

// TruncateAll empties the writable tables of db, referencing tables first.
func (g *Generator) TruncateAll(db *schema.Database) Plan {
	tables := slices.Clone(db.WritableTables())
	slices.Reverse(tables)
	return Plan{}.add(g.Truncate(tables), false)
}

// CreateAllProcedures creates the languages of db, ignoring failures for
// languages already installed, and then its procedures.
func (g *Generator) CreateAllProcedures(db *schema.Database) (Plan, error) {
	if len(db.Procedures) == 0 {
		return nil, nil
	}
	var langs, procs []string
	for _, lang := range db.Languages() {
		langs = append(langs, g.CreateLanguage(lang))
	}
	for _, p := range db.Procedures {
		s, err := g.CreateProcedure(p)
		if err != nil {
			return nil, err
		}
		procs = append(procs, s)
	}
	return Plan{}.add(langs, true).add(procs, false), nil
}

// DropAllProcedures drops the procedures of db in reverse order. Languages
// are left installed.
func (g *Generator) DropAllProcedures(db *schema.Database, cascade bool) Plan {
	var stmts []string
	for _, p := range slices.Backward(db.Procedures) {
		stmts = append(stmts, g.DropProcedure(p, cascade))
	}
	return Plan{}.add(stmts, false)
}

// CreateAllTriggers creates the triggers of the creatable tables.
func (g *Generator) CreateAllTriggers(db *schema.Database) (Plan, error) {
	var stmts []string
	for _, t := range db.CreatableTables() {
		for _, tr := range t.Triggers {
			s, err := g.CreateTrigger(tr)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
	}
	return Plan{}.add(stmts, false), nil
}

// DropAllTriggers drops the triggers of the creatable tables in reverse
// creation order.
func (g *Generator) DropAllTriggers(db *schema.Database, cascade bool) Plan {
	var stmts []string
	for _, t := range slices.Backward(db.CreatableTables()) {
		for _, tr := range slices.Backward(t.Triggers) {
			stmts = append(stmts, g.DropTrigger(tr, cascade))
		}
	}
	return Plan{}.add(stmts, false)
}

// CreateStructure creates languages, procedures, tables with their indexes
// and finally triggers, which may call procedures and need their tables.
func (g *Generator) CreateStructure(db *schema.Database) (Plan, error) {
	procs, err := g.CreateAllProcedures(db)
	if err != nil {
		return nil, err
	}
	tables, err := g.CreateAllTables(db)
	if err != nil {
		return nil, err
	}
	triggers, err := g.CreateAllTriggers(db)
	if err != nil {
		return nil, err
	}
	return slices.Concat(procs, tables, triggers), nil
}

// DropStructure undoes CreateStructure in reverse order.
func (g *Generator) DropStructure(db *schema.Database, cascade bool) Plan {
	return slices.Concat(
		g.DropAllTriggers(db, cascade),
		g.DropAllTables(db, cascade),
		g.DropAllProcedures(db, cascade),
	)
}

// CreateTablePlan creates a single table with its indexes and triggers.
func (g *Generator) CreateTablePlan(t *schema.Table) (Plan, error) {
	stmts, err := g.CreateTable(t)
	if err != nil {
		return nil, err
	}
	for _, tr := range t.Triggers {
		s, err := g.CreateTrigger(tr)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return Plan{}.add(stmts, false), nil
}

// DropTablePlan drops a single table after its triggers.
func (g *Generator) DropTablePlan(t *schema.Table, cascade bool) Plan {
	var stmts []string
	for _, tr := range slices.Backward(t.Triggers) {
		stmts = append(stmts, g.DropTrigger(tr, cascade))
	}
	return Plan{}.add(append(stmts, g.DropTable(t, cascade)...), false)
}
