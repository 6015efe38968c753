package schema

// ColumnKind is the semantic type of a column.
type ColumnKind string

const (
	KindPrimaryKey     ColumnKind = "primary_key"
	KindForeignKey     ColumnKind = "foreign_key"
	KindBoolean        ColumnKind = "boolean"
	KindInteger        ColumnKind = "integer"
	KindFloat          ColumnKind = "float"
	KindDecimal        ColumnKind = "decimal"
	KindText           ColumnKind = "text"
	KindDate           ColumnKind = "date"
	KindDatetime       ColumnKind = "datetime"
	KindSearchDocument ColumnKind = "search_document"
	KindUUID           ColumnKind = "uuid"
	KindCustom         ColumnKind = "custom"
)

// Ordered reports whether values of the kind can be compared with < and >.
func (k ColumnKind) Ordered() bool {
	switch k {
	case KindPrimaryKey, KindForeignKey, KindInteger, KindFloat, KindDecimal,
		KindText, KindDate, KindDatetime:
		return true
	}
	return false
}

// IsText reports whether pattern matching operators apply to the kind.
func (k ColumnKind) IsText() bool {
	return k == KindText
}

// IsInteger reports whether the kind stores whole numbers.
func (k ColumnKind) IsInteger() bool {
	return k == KindPrimaryKey || k == KindForeignKey || k == KindInteger
}

// Column describes a single table column or the value type of a computed
// query result.
type Column struct {
	Name string
	Kind ColumnKind
	Doc  string

	Null          bool
	Default       any    // literal default, nil means none
	CustomDefault string // SQL expression evaluated by the server
	Hidden        bool   // excluded from records

	MaxLength int  // text
	Digits    int  // integer
	Double    bool // float
	Precision int  // decimal
	Scale     int  // decimal
	Serial    bool // primary key generated by the server

	References string // foreign key target table
	OnDelete   string
	OnUpdate   string

	Sources []string // search document source columns
	SQLType string   // custom

	table      *Table
	referenced *Table
}

// Accessible reports whether the column is part of the record shape.
func (c *Column) Accessible() bool {
	return !c.Hidden && c.Kind != KindSearchDocument
}

// Required reports whether a value must be supplied on insert.
func (c *Column) Required() bool {
	if c.Null || c.Default != nil || c.CustomDefault != "" {
		return false
	}
	return !(c.Kind == KindPrimaryKey && c.Serial)
}

// Table returns the owning table, nil for unbound column types.
func (c *Column) Table() *Table {
	return c.table
}

// Referenced returns the table a foreign key points to.
func (c *Column) Referenced() *Table {
	return c.referenced
}

// ConstraintKind tells apart the constraint flavours.
type ConstraintKind string

const (
	PrimaryKeyConstraint ConstraintKind = "primary_key"
	ForeignKeyConstraint ConstraintKind = "foreign_key"
	UniqueConstraint     ConstraintKind = "unique"
	CheckConstraint      ConstraintKind = "check"
)

// Constraint is a named table constraint over an ordered column tuple.
type Constraint struct {
	Name    string
	Kind    ConstraintKind
	Columns []string
	Check   Expr

	References string
	OnDelete   string
	OnUpdate   string
}

// Index is a named index over an ordered column tuple.
type Index struct {
	Name    string
	Columns []string
	Unique  bool

	// FullText marks the index derived from a search document column.
	// Columns then lists the document's source columns.
	FullText bool
	Document string
}

// TriggerTiming is BEFORE or AFTER.
type TriggerTiming string

// TriggerEvent is the data change firing a trigger.
type TriggerEvent string

// TriggerScope is FOR EACH ROW or FOR EACH STATEMENT.
type TriggerScope string

const (
	Before TriggerTiming = "BEFORE"
	After  TriggerTiming = "AFTER"

	OnInsert         TriggerEvent = "INSERT"
	OnUpdate         TriggerEvent = "UPDATE"
	OnInsertOrUpdate TriggerEvent = "INSERT OR UPDATE"
	OnDelete         TriggerEvent = "DELETE"

	ForEachRow       TriggerScope = "ROW"
	ForEachStatement TriggerScope = "STATEMENT"
)

// Trigger attaches a procedure to data changes of its owning table.
type Trigger struct {
	Name       string
	Timing     TriggerTiming
	Event      TriggerEvent
	Scope      TriggerScope
	Procedure  string
	Parameters []Expr

	table *Table
}

// Table returns the owning table.
func (t *Trigger) Table() *Table {
	return t.table
}

// Procedure is a stored procedure. Body is opaque to this package.
type Procedure struct {
	Name      string
	Language  string
	Arguments []string
	Result    string
	Body      string
}

// Table is a relational table.
type Table struct {
	Name        string
	Doc         string
	Columns     []*Column
	Constraints []*Constraint
	Indexes     []*Index
	Triggers    []*Trigger

	// External tables (views, tables owned elsewhere) get no DDL and no
	// write operations. ReadOnly tables are created but never written.
	External bool
	ReadOnly bool

	primaryKey *Column
	database   *Database
}

// Creatable reports whether DDL is generated for the table.
func (t *Table) Creatable() bool {
	return !t.External
}

// Writable reports whether insert, update and delete are allowed.
func (t *Table) Writable() bool {
	return !t.External && !t.ReadOnly
}

// PrimaryKey returns the primary key column or nil.
func (t *Table) PrimaryKey() *Column {
	return t.primaryKey
}

// Column looks up a column by name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AccessibleColumns returns the record shape in declaration order.
func (t *Table) AccessibleColumns() []*Column {
	var cols []*Column
	for _, c := range t.Columns {
		if c.Accessible() {
			cols = append(cols, c)
		}
	}
	return cols
}

// AllConstraints returns the implicit primary and foreign key constraints
// followed by the declared ones.
func (t *Table) AllConstraints() []*Constraint {
	var out []*Constraint
	for _, c := range t.Columns {
		switch {
		case c.Kind == KindPrimaryKey && !c.Serial:
			out = append(out, &Constraint{
				Name:    "pk_" + c.Name,
				Kind:    PrimaryKeyConstraint,
				Columns: []string{c.Name},
			})
		case c.Kind == KindForeignKey:
			out = append(out, &Constraint{
				Name:       "fk_" + c.Name,
				Kind:       ForeignKeyConstraint,
				Columns:    []string{c.Name},
				References: c.References,
				OnDelete:   c.OnDelete,
				OnUpdate:   c.OnUpdate,
			})
		}
	}
	return append(out, t.Constraints...)
}

// AllIndexes returns the declared indexes followed by the full-text indexes
// of search document columns.
func (t *Table) AllIndexes() []*Index {
	out := append([]*Index(nil), t.Indexes...)
	for _, c := range t.Columns {
		if c.Kind == KindSearchDocument {
			out = append(out, &Index{
				Name:     c.Name + "_index",
				Columns:  c.Sources,
				FullText: true,
				Document: c.Name,
			})
		}
	}
	return out
}

// Database returns the owning database.
func (t *Table) Database() *Database {
	return t.database
}

// WritableColumns returns the accessible columns a client may set on
// insert. Serial primary keys are generated by the server and left out.
func (t *Table) WritableColumns() []*Column {
	var cols []*Column
	for _, c := range t.AccessibleColumns() {
		if c.Kind == KindPrimaryKey && c.Serial {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}
