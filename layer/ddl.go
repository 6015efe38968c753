package layer

import (
	"context"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/schema"
)

// run executes the plan returned by build.
func (s *Session) run(ctx context.Context, build func() (generator.Plan, error)) error {
	p, err := build()
	if err != nil {
		return err
	}
	return s.runner.ExecutePlan(ctx, p)
}

func (s *Session) procedure(name string) (*schema.Procedure, error) {
	p := s.layer.Database.Procedure(name)
	if p == nil {
		return nil, dblayer.NewFormatError(name, "unknown procedure")
	}
	return p, nil
}

func (s *Session) trigger(tableName, name string) (*schema.Trigger, error) {
	t, err := s.layer.table(tableName)
	if err != nil {
		return nil, err
	}
	for _, tr := range t.Triggers {
		if tr.Name == name {
			return tr, nil
		}
	}
	return nil, dblayer.NewFormatError(tableName, "unknown trigger %s", name)
}

// CreateTable creates the table with its indexes and triggers.
func (s *Session) CreateTable(ctx context.Context, name string) error {
	t, err := s.layer.table(name)
	if err != nil {
		return err
	}
	return s.run(ctx, func() (generator.Plan, error) {
		return s.layer.Generator.CreateTablePlan(t.Table)
	})
}

// DropTable drops the table after its triggers.
func (s *Session) DropTable(ctx context.Context, name string, cascade bool) error {
	t, err := s.layer.table(name)
	if err != nil {
		return err
	}
	return s.runner.ExecutePlan(ctx, s.layer.Generator.DropTablePlan(t.Table, cascade))
}

// CreateProcedure creates a stored procedure.
func (s *Session) CreateProcedure(ctx context.Context, name string) error {
	p, err := s.procedure(name)
	if err != nil {
		return err
	}
	stmt, err := s.layer.Generator.CreateProcedure(p)
	if err != nil {
		return err
	}
	return s.runner.ExecuteStatementList(ctx, []string{stmt}, false)
}

// DropProcedure drops a stored procedure.
func (s *Session) DropProcedure(ctx context.Context, name string, cascade bool) error {
	p, err := s.procedure(name)
	if err != nil {
		return err
	}
	return s.runner.ExecuteStatementList(ctx, []string{s.layer.Generator.DropProcedure(p, cascade)}, false)
}

// CreateTrigger creates a trigger of a table.
func (s *Session) CreateTrigger(ctx context.Context, table, name string) error {
	tr, err := s.trigger(table, name)
	if err != nil {
		return err
	}
	stmt, err := s.layer.Generator.CreateTrigger(tr)
	if err != nil {
		return err
	}
	return s.runner.ExecuteStatementList(ctx, []string{stmt}, false)
}

// DropTrigger drops a trigger of a table.
func (s *Session) DropTrigger(ctx context.Context, table, name string, cascade bool) error {
	tr, err := s.trigger(table, name)
	if err != nil {
		return err
	}
	return s.runner.ExecuteStatementList(ctx, []string{s.layer.Generator.DropTrigger(tr, cascade)}, false)
}

// CreateAllTables creates the creatable tables in declaration order.
func (s *Session) CreateAllTables(ctx context.Context) error {
	return s.run(ctx, func() (generator.Plan, error) {
		return s.layer.Generator.CreateAllTables(s.layer.Database)
	})
}

// DropAllTables drops the creatable tables in reverse order.
func (s *Session) DropAllTables(ctx context.Context, cascade bool) error {
	return s.runner.ExecutePlan(ctx, s.layer.Generator.DropAllTables(s.layer.Database, cascade))
}

// TruncateAllTables empties every writable table.
func (s *Session) TruncateAllTables(ctx context.Context) error {
	return s.runner.ExecutePlan(ctx, s.layer.Generator.TruncateAll(s.layer.Database))
}

// CreateAllProcedures creates every procedure of the database.
func (s *Session) CreateAllProcedures(ctx context.Context) error {
	return s.run(ctx, func() (generator.Plan, error) {
		return s.layer.Generator.CreateAllProcedures(s.layer.Database)
	})
}

// DropAllProcedures drops every procedure of the database.
func (s *Session) DropAllProcedures(ctx context.Context, cascade bool) error {
	return s.runner.ExecutePlan(ctx, s.layer.Generator.DropAllProcedures(s.layer.Database, cascade))
}

// CreateAllTriggers creates the triggers of every creatable table.
func (s *Session) CreateAllTriggers(ctx context.Context) error {
	return s.run(ctx, func() (generator.Plan, error) {
		return s.layer.Generator.CreateAllTriggers(s.layer.Database)
	})
}

// DropAllTriggers drops the triggers of every creatable table.
func (s *Session) DropAllTriggers(ctx context.Context, cascade bool) error {
	return s.runner.ExecutePlan(ctx, s.layer.Generator.DropAllTriggers(s.layer.Database, cascade))
}

// CreateStructure creates languages, procedures, tables and triggers.
func (s *Session) CreateStructure(ctx context.Context) error {
	return s.run(ctx, func() (generator.Plan, error) {
		return s.layer.Generator.CreateStructure(s.layer.Database)
	})
}

// DropStructure drops everything CreateStructure created except languages.
func (s *Session) DropStructure(ctx context.Context, cascade bool) error {
	return s.runner.ExecutePlan(ctx, s.layer.Generator.DropStructure(s.layer.Database, cascade))
}
