// Package diff compares a model database with the tables introspected
// from a live PostgreSQL schema.
package diff

import (
	"fmt"

	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/introspect"
	"github.com/ridoystarlord/dblayer/schema"
)

type OperationType string

const (
	MissingTable      OperationType = "MISSING_TABLE"
	ExtraTable        OperationType = "EXTRA_TABLE"
	MissingColumn     OperationType = "MISSING_COLUMN"
	ExtraColumn       OperationType = "EXTRA_COLUMN"
	ChangedColumn     OperationType = "CHANGED_COLUMN"
	MissingForeignKey OperationType = "MISSING_FOREIGN_KEY"
	ExtraForeignKey   OperationType = "EXTRA_FOREIGN_KEY"
	MissingIndex      OperationType = "MISSING_INDEX"
	ExtraIndex        OperationType = "EXTRA_INDEX"
)

// Operation is one difference between the model and the database.
type Operation struct {
	Type       OperationType
	TableName  string
	ColumnName string
	IndexName  string
	Detail     string

	table *schema.Table
	index *schema.Index
}

func (op Operation) String() string {
	s := fmt.Sprintf("%s %s", op.Type, op.TableName)
	if op.ColumnName != "" {
		s += "." + op.ColumnName
	}
	if op.IndexName != "" {
		s += " " + op.IndexName
	}
	if op.Detail != "" {
		s += ": " + op.Detail
	}
	return s
}

// DiffSchemas lists the differences between the creatable tables of db
// and the existing tables. Index names follow the generator conventions.
func DiffSchemas(db *schema.Database, existing []introspect.ExistingTable) []Operation {
	var ops []Operation

	existingTableMap := map[string]*introspect.ExistingTable{}
	for i := range existing {
		existingTableMap[existing[i].TableName] = &existing[i]
	}
	modelTableMap := map[string]bool{}

	for _, t := range db.Tables {
		modelTableMap[t.Name] = true
		if !t.Creatable() {
			continue
		}
		et, ok := existingTableMap[t.Name]
		if !ok {
			ops = append(ops, Operation{Type: MissingTable, TableName: t.Name, table: t})
			continue
		}
		ops = append(ops, diffColumns(t, et)...)
		ops = append(ops, diffIndexes(t, et)...)
	}

	for _, et := range existing {
		if !modelTableMap[et.TableName] {
			ops = append(ops, Operation{Type: ExtraTable, TableName: et.TableName})
		}
	}
	return ops
}

func diffColumns(t *schema.Table, et *introspect.ExistingTable) []Operation {
	var ops []Operation
	live := introspect.Table(et)
	for _, c := range t.Columns {
		ec := et.Column(c.Name)
		if ec == nil {
			ops = append(ops, Operation{Type: MissingColumn, TableName: t.Name, ColumnName: c.Name})
			continue
		}
		lc := live.Column(c.Name)
		if family(c) != family(lc) {
			ops = append(ops, Operation{
				Type: ChangedColumn, TableName: t.Name, ColumnName: c.Name,
				Detail: fmt.Sprintf("model %s, database %s", c.Kind, ec.DataType),
			})
		} else if c.Null != ec.IsNullable && c.Kind != schema.KindPrimaryKey {
			ops = append(ops, Operation{
				Type: ChangedColumn, TableName: t.Name, ColumnName: c.Name,
				Detail: fmt.Sprintf("model nullable %t, database nullable %t", c.Null, ec.IsNullable),
			})
		}

		fk := et.ForeignKey(c.Name)
		switch {
		case c.Kind == schema.KindForeignKey && fk == nil:
			ops = append(ops, Operation{Type: MissingForeignKey, TableName: t.Name, ColumnName: c.Name, Detail: "references " + c.References})
		case c.Kind == schema.KindForeignKey && fk.ReferencesTable != c.References:
			ops = append(ops, Operation{Type: ChangedColumn, TableName: t.Name, ColumnName: c.Name,
				Detail: fmt.Sprintf("references %s, database references %s", c.References, fk.ReferencesTable)})
		case c.Kind != schema.KindForeignKey && fk != nil:
			ops = append(ops, Operation{Type: ExtraForeignKey, TableName: t.Name, ColumnName: c.Name, Detail: fk.ConstraintName})
		}
	}
	for _, ec := range et.Columns {
		if t.Column(ec.ColumnName) == nil {
			ops = append(ops, Operation{Type: ExtraColumn, TableName: t.Name, ColumnName: ec.ColumnName})
		}
	}
	return ops
}

// family folds kinds sharing a storage type.
func family(c *schema.Column) string {
	switch c.Kind {
	case schema.KindPrimaryKey, schema.KindForeignKey, schema.KindInteger:
		return "integer"
	case schema.KindSearchDocument:
		return "tsvector"
	case schema.KindCustom:
		return c.SQLType
	}
	return string(c.Kind)
}

func diffIndexes(t *schema.Table, et *introspect.ExistingTable) []Operation {
	var ops []Operation
	existing := map[string]bool{}
	for _, idx := range et.Indexes {
		existing[idx.IndexName] = true
	}
	expected := map[string]bool{}
	for _, con := range t.AllConstraints() {
		expected[t.Name+"__"+con.Name] = true
	}
	for _, idx := range t.AllIndexes() {
		name := generator.IndexName(t, idx)
		expected[name] = true
		if !existing[name] {
			ops = append(ops, Operation{Type: MissingIndex, TableName: t.Name, IndexName: name, table: t, index: idx})
		}
	}
	for _, idx := range et.Indexes {
		if idx.IsPrimary || expected[idx.IndexName] {
			continue
		}
		ops = append(ops, Operation{Type: ExtraIndex, TableName: t.Name, IndexName: idx.IndexName})
	}
	return ops
}

// Fix returns the statements creating the missing tables and indexes.
// Other differences need a hand-written migration and are left alone.
func Fix(g *generator.Generator, ops []Operation) (generator.Plan, error) {
	var plan generator.Plan
	for _, op := range ops {
		switch op.Type {
		case MissingTable:
			p, err := g.CreateTablePlan(op.table)
			if err != nil {
				return nil, err
			}
			plan = append(plan, p...)
		case MissingIndex:
			stmts, err := g.CreateIndex(op.table, op.index)
			if err != nil {
				return nil, err
			}
			plan = append(plan, generator.Batch{Statements: stmts})
		}
	}
	return plan, nil
}
