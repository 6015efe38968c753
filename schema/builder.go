package schema

// ColumnOption adjusts a column built by one of the constructors below.
type ColumnOption func(*Column)

// Nullable allows NULL values.
func Nullable() ColumnOption { return func(c *Column) { c.Null = true } }

// Default sets a literal default value.
func Default(v any) ColumnOption { return func(c *Column) { c.Default = v } }

// CustomDefault sets a default computed by the server, e.g. now().
func CustomDefault(sql string) ColumnOption { return func(c *Column) { c.CustomDefault = sql } }

// Doc documents the column.
func Doc(doc string) ColumnOption { return func(c *Column) { c.Doc = doc } }

// Hide keeps the column out of records.
func Hide() ColumnOption { return func(c *Column) { c.Hidden = true } }

// Actions sets the referential actions of a foreign key.
func Actions(onDelete, onUpdate string) ColumnOption {
	return func(c *Column) {
		c.OnDelete = onDelete
		c.OnUpdate = onUpdate
	}
}

func newColumn(name string, kind ColumnKind, opts []ColumnOption) *Column {
	c := &Column{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrimaryKeyColumn declares the primary key. Serial keys are generated by
// the server; the others are supplied by the client.
func PrimaryKeyColumn(name string, serial bool, opts ...ColumnOption) *Column {
	c := newColumn(name, KindPrimaryKey, opts)
	c.Serial = serial
	return c
}

// ForeignKeyColumn references the primary key of table.
func ForeignKeyColumn(name, table string, opts ...ColumnOption) *Column {
	c := newColumn(name, KindForeignKey, opts)
	c.References = table
	return c
}

func BooleanColumn(name string, opts ...ColumnOption) *Column {
	return newColumn(name, KindBoolean, opts)
}

// IntegerColumn stores whole numbers of up to digits decimal digits.
func IntegerColumn(name string, digits int, opts ...ColumnOption) *Column {
	c := newColumn(name, KindInteger, opts)
	c.Digits = digits
	return c
}

func FloatColumn(name string, double bool, opts ...ColumnOption) *Column {
	c := newColumn(name, KindFloat, opts)
	c.Double = double
	return c
}

func DecimalColumn(name string, precision, scale int, opts ...ColumnOption) *Column {
	c := newColumn(name, KindDecimal, opts)
	c.Precision = precision
	c.Scale = scale
	return c
}

// TextColumn stores text; a zero maxLength means unlimited.
func TextColumn(name string, maxLength int, opts ...ColumnOption) *Column {
	c := newColumn(name, KindText, opts)
	c.MaxLength = maxLength
	return c
}

func DateColumn(name string, opts ...ColumnOption) *Column {
	return newColumn(name, KindDate, opts)
}

func DatetimeColumn(name string, opts ...ColumnOption) *Column {
	return newColumn(name, KindDatetime, opts)
}

func UUIDColumn(name string, opts ...ColumnOption) *Column {
	return newColumn(name, KindUUID, opts)
}

// SearchDocumentColumn is a full-text search document maintained by a
// trigger from the text of sources. It is never part of records.
func SearchDocumentColumn(name string, sources []string, opts ...ColumnOption) *Column {
	c := newColumn(name, KindSearchDocument, opts)
	c.Sources = sources
	c.Null = true
	return c
}

// CustomColumn uses sqlType verbatim in DDL.
func CustomColumn(name, sqlType string, opts ...ColumnOption) *Column {
	c := newColumn(name, KindCustom, opts)
	c.SQLType = sqlType
	return c
}

// NewTable starts a table definition.
func NewTable(name string, columns ...*Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// WithDoc documents the table.
func (t *Table) WithDoc(doc string) *Table {
	t.Doc = doc
	return t
}

// Unique adds a unique constraint.
func (t *Table) Unique(name string, columns ...string) *Table {
	t.Constraints = append(t.Constraints, &Constraint{Name: name, Kind: UniqueConstraint, Columns: columns})
	return t
}

// Check adds a check constraint.
func (t *Table) Check(name string, expr Expr) *Table {
	t.Constraints = append(t.Constraints, &Constraint{Name: name, Kind: CheckConstraint, Check: expr})
	return t
}

// Index adds a btree index.
func (t *Table) Index(name string, columns ...string) *Table {
	t.Indexes = append(t.Indexes, &Index{Name: name, Columns: columns})
	return t
}

// UniqueIndex adds a unique btree index.
func (t *Table) UniqueIndex(name string, columns ...string) *Table {
	t.Indexes = append(t.Indexes, &Index{Name: name, Columns: columns, Unique: true})
	return t
}

// Trigger attaches procedure to the table.
func (t *Table) Trigger(name string, timing TriggerTiming, event TriggerEvent, scope TriggerScope, procedure string, params ...Expr) *Table {
	t.Triggers = append(t.Triggers, &Trigger{
		Name:       name,
		Timing:     timing,
		Event:      event,
		Scope:      scope,
		Procedure:  procedure,
		Parameters: params,
	})
	return t
}

// AsExternal marks the table as owned elsewhere: no DDL, no writes.
func (t *Table) AsExternal() *Table {
	t.External = true
	return t
}

// AsReadOnly disables writes.
func (t *Table) AsReadOnly() *Table {
	t.ReadOnly = true
	return t
}
