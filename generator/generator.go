// Package generator renders the DDL of a database model: tables with their
// constraints and indexes, full-text search support, triggers, stored
// procedures and languages. Statements are complete SQL text with every
// literal inlined; none of them take bind arguments.
package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// Generator formats DDL for one dialect.
type Generator struct {
	Dialect dialect.Dialect
}

// New returns a generator for d.
func New(d dialect.Dialect) *Generator {
	return &Generator{Dialect: d}
}

func (g *Generator) quote(name string) string {
	return g.Dialect.QuoteIdent(name)
}

func (g *Generator) quoteAll(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = g.quote(n)
	}
	return strings.Join(out, ", ")
}

func (g *Generator) inline(t *schema.Table, e schema.Expr) (string, error) {
	f := format.Formatter{Dialect: g.Dialect, Scope: t, Inline: true}
	frag, err := f.Format(e)
	if err != nil {
		return "", err
	}
	return frag.SQL, nil
}

func (g *Generator) requireProcedures(object string) error {
	if !g.Dialect.Procedures() {
		return dblayer.NewFormatError(object, "%s does not support triggers and procedures", g.Dialect.Name())
	}
	return nil
}

// columnDefinition renders `"name" TYPE [DEFAULT x] [NOT NULL]`.
func (g *Generator) columnDefinition(t *schema.Table, c *schema.Column) (string, error) {
	typ, err := g.Dialect.ColumnType(c)
	if err != nil {
		return "", err
	}
	def := g.quote(c.Name) + " " + typ
	switch {
	case c.CustomDefault != "":
		def += " DEFAULT " + c.CustomDefault
	case c.Default != nil:
		lit, err := g.Dialect.QuoteLiteral(c.Default)
		if err != nil {
			return "", dblayer.NewFormatError(t.Name+"."+c.Name, "default: %v", err)
		}
		def += " DEFAULT " + lit
	}
	serial := c.Kind == schema.KindPrimaryKey && c.Serial
	if !c.Null && !serial && c.Kind != schema.KindSearchDocument {
		def += " NOT NULL"
	}
	return def, nil
}

func referentialAction(action string) string {
	if action == "" {
		return "NO ACTION"
	}
	return strings.ToUpper(action)
}

// constraintDefinition renders the body following CONSTRAINT "name".
func (g *Generator) constraintDefinition(t *schema.Table, con *schema.Constraint) (string, error) {
	switch con.Kind {
	case schema.PrimaryKeyConstraint:
		return "PRIMARY KEY (" + g.quoteAll(con.Columns) + ")", nil
	case schema.UniqueConstraint:
		return "UNIQUE (" + g.quoteAll(con.Columns) + ")", nil
	case schema.ForeignKeyConstraint:
		ref := t.Database().Table(con.References)
		if ref == nil || ref.PrimaryKey() == nil {
			return "", &dblayer.MissingPrimaryKeyError{Table: con.References, Operation: "reference"}
		}
		sql := "FOREIGN KEY (" + g.quoteAll(con.Columns) + ") REFERENCES " +
			g.quote(ref.Name) + " (" + g.quote(ref.PrimaryKey().Name) + ")"
		if g.Dialect.Name() == dialect.Postgres {
			sql += " MATCH SIMPLE"
		}
		return sql + " ON UPDATE " + referentialAction(con.OnUpdate) +
			" ON DELETE " + referentialAction(con.OnDelete), nil
	case schema.CheckConstraint:
		expr, err := g.inline(t, con.Check)
		if err != nil {
			return "", err
		}
		return "CHECK (" + expr + ")", nil
	}
	return "", dblayer.NewFormatError(t.Name+"__"+con.Name, "unknown constraint kind %q", con.Kind)
}

// CreateTable returns the CREATE TABLE statement of t followed by the
// creation of its indexes.
func (g *Generator) CreateTable(t *schema.Table) ([]string, error) {
	var defs []string
	for _, c := range t.Columns {
		def, err := g.columnDefinition(t, c)
		if err != nil {
			return nil, fmt.Errorf("generate CREATE TABLE %s: %w", t.Name, err)
		}
		defs = append(defs, def)
	}
	for _, con := range t.AllConstraints() {
		def, err := g.constraintDefinition(t, con)
		if err != nil {
			return nil, fmt.Errorf("generate CREATE TABLE %s: %w", t.Name, err)
		}
		defs = append(defs, "CONSTRAINT "+g.quote(t.Name+"__"+con.Name)+" "+def)
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", g.quote(t.Name), strings.Join(defs, ",\n  "))}
	for _, idx := range t.AllIndexes() {
		s, err := g.CreateIndex(t, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	return stmts, nil
}

// DropTable returns the statements dropping the indexes of t and then t.
func (g *Generator) DropTable(t *schema.Table, cascade bool) []string {
	var stmts []string
	for _, idx := range t.AllIndexes() {
		stmts = append(stmts, g.DropIndex(t, idx)...)
	}
	sql := "DROP TABLE " + g.quote(t.Name)
	if cascade {
		sql += " CASCADE"
	}
	return append(stmts, sql+";")
}

// IndexName is the database name of idx: the table name, an underscore
// and the index name.
func IndexName(t *schema.Table, idx *schema.Index) string {
	return t.Name + "_" + idx.Name
}

func fullTextNames(t *schema.Table, idx *schema.Index) (function, trigger string) {
	name := IndexName(t, idx)
	return "fn_" + name + "_update_trigger", name + "_update_trigger"
}

// CreateIndex returns the statements creating idx on t. Full-text indexes
// take three statements: the function computing the search document, the
// gin index and the trigger keeping the document current.
func (g *Generator) CreateIndex(t *schema.Table, idx *schema.Index) ([]string, error) {
	if idx.FullText {
		return g.createFullTextIndex(t, idx)
	}
	sql := "CREATE INDEX "
	if idx.Unique {
		sql = "CREATE UNIQUE INDEX "
	}
	sql += g.quote(IndexName(t, idx)) + " ON " + g.quote(t.Name)
	if g.Dialect.Name() == dialect.Postgres {
		sql += " USING btree"
	}
	return []string{sql + " (" + g.quoteAll(idx.Columns) + ");"}, nil
}

func (g *Generator) createFullTextIndex(t *schema.Table, idx *schema.Index) ([]string, error) {
	if err := g.requireProcedures(IndexName(t, idx)); err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(idx.Columns))
	for _, name := range idx.Columns {
		ref := "new." + g.quote(name)
		if c := t.Column(name); c != nil && c.Null {
			ref = "COALESCE(" + ref + ", '')"
		}
		parts = append(parts, ref)
	}
	function, trigger := fullTextNames(t, idx)
	document := g.quote(idx.Document)
	return []string{
		fmt.Sprintf("CREATE FUNCTION %s () RETURNS trigger AS $$\nBEGIN\n  new.%s := to_tsvector(%s);\n  RETURN new;\nEND\n$$ LANGUAGE plpgsql;",
			g.quote(function), document, strings.Join(parts, " || ' ' || ")),
		fmt.Sprintf("CREATE INDEX %s ON %s USING gin(%s);",
			g.quote(IndexName(t, idx)), g.quote(t.Name), document),
		fmt.Sprintf("CREATE TRIGGER %s BEFORE INSERT OR UPDATE ON %s FOR EACH ROW EXECUTE PROCEDURE %s ();",
			g.quote(trigger), g.quote(t.Name), g.quote(function)),
	}, nil
}

// DropIndex returns the statements dropping idx, in reverse creation order.
func (g *Generator) DropIndex(t *schema.Table, idx *schema.Index) []string {
	name := g.quote(IndexName(t, idx))
	if idx.FullText {
		function, trigger := fullTextNames(t, idx)
		return []string{
			"DROP TRIGGER " + g.quote(trigger) + " ON " + g.quote(t.Name) + ";",
			"DROP INDEX " + name + ";",
			"DROP FUNCTION " + g.quote(function) + " ();",
		}
	}
	if g.Dialect.Name() == dialect.MySQL {
		return []string{"DROP INDEX " + name + " ON " + g.quote(t.Name) + ";"}
	}
	return []string{"DROP INDEX " + name + ";"}
}

// CreateTrigger returns the CREATE TRIGGER statement of tr. Procedure
// parameters are inlined.
func (g *Generator) CreateTrigger(tr *schema.Trigger) (string, error) {
	if err := g.requireProcedures(tr.Name); err != nil {
		return "", err
	}
	t := tr.Table()
	params := make([]string, 0, len(tr.Parameters))
	for _, p := range tr.Parameters {
		sql, err := g.inline(t, p)
		if err != nil {
			return "", fmt.Errorf("generate CREATE TRIGGER %s: %w", tr.Name, err)
		}
		params = append(params, sql)
	}
	return fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH %s EXECUTE PROCEDURE %s (%s);",
		g.quote(tr.Name), tr.Timing, tr.Event, g.quote(t.Name), tr.Scope,
		g.quote(tr.Procedure), strings.Join(params, ", ")), nil
}

// DropTrigger returns the DROP TRIGGER statement of tr.
func (g *Generator) DropTrigger(tr *schema.Trigger, cascade bool) string {
	sql := "DROP TRIGGER " + g.quote(tr.Name) + " ON " + g.quote(tr.Table().Name)
	if cascade {
		sql += " CASCADE"
	}
	return sql + ";"
}

// CreateProcedure returns the CREATE FUNCTION statement of p. The body is
// written between dollar quotes as given.
func (g *Generator) CreateProcedure(p *schema.Procedure) (string, error) {
	if err := g.requireProcedures(p.Name); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE FUNCTION %s (%s) RETURNS %s AS $$\n%s\n$$ LANGUAGE %s;",
		g.quote(p.Name), strings.Join(p.Arguments, ", "), p.Result, p.Body, p.Language), nil
}

// DropProcedure returns the DROP FUNCTION statement of p. Arguments are
// part of a function's identity.
func (g *Generator) DropProcedure(p *schema.Procedure, cascade bool) string {
	sql := fmt.Sprintf("DROP FUNCTION %s (%s)", g.quote(p.Name), strings.Join(p.Arguments, ", "))
	if cascade {
		sql += " CASCADE"
	}
	return sql + ";"
}

// CreateLanguage returns the CREATE LANGUAGE statement of lang.
func (g *Generator) CreateLanguage(lang string) string {
	return "CREATE LANGUAGE " + g.quote(lang) + ";"
}

// Truncate returns the statements emptying tables.
func (g *Generator) Truncate(tables []*schema.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return g.Dialect.Truncate(names)
}
