// Package validator lints table definitions before they reach
// schema.NewDatabase or a live database.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/introspect"
	"github.com/ridoystarlord/dblayer/schema"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Type     string   `json:"type"`
	Table    string   `json:"table,omitempty"`
	Column   string   `json:"column,omitempty"`
	Index    string   `json:"index,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}
}

// Add files e under its severity.
func (r *ValidationResult) Add(e ValidationError) {
	switch e.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, e)
		r.Valid = false
	case SeverityWarning:
		r.Warnings = append(r.Warnings, e)
	default:
		r.Info = append(r.Info, e)
	}
}

// Generated names are always quoted, so reserved words only warn.
var reservedKeywords = []string{
	"all", "and", "as", "asc", "between", "by", "case", "check", "column", "constraint",
	"create", "default", "delete", "desc", "distinct", "drop", "else", "end", "from",
	"group", "having", "in", "index", "insert", "into", "is", "join", "like", "limit",
	"not", "null", "offset", "on", "or", "order", "primary", "references", "schema",
	"select", "table", "then", "to", "union", "unique", "update", "user", "using",
	"values", "view", "when", "where",
}

var referentialActions = []string{"", "cascade", "restrict", "set null", "set default", "no action"}

// ValidateTables lints tables in declaration order. Unlike NewDatabase it
// keeps going after the first problem so every issue is reported.
func ValidateTables(tables []*schema.Table) *ValidationResult {
	result := newResult()
	declared := map[string]*schema.Table{}
	for _, t := range tables {
		if declared[t.Name] != nil {
			result.Add(ValidationError{
				Type: "duplicate_table", Table: t.Name, Severity: SeverityError,
				Message: fmt.Sprintf("Duplicate table name '%s'", t.Name),
			})
			continue
		}
		// Registered first so self references resolve.
		declared[t.Name] = t
		validateTable(t, declared, result)
	}
	return result
}

// Validate lints a bound database.
func Validate(db *schema.Database) *ValidationResult {
	return ValidateTables(db.Tables)
}

// CompareExisting reports model tables already present in the database
// and existing tables the model does not know.
func CompareExisting(result *ValidationResult, db *schema.Database, existing []introspect.ExistingTable) {
	live := map[string]bool{}
	for _, et := range existing {
		live[et.TableName] = true
		if db.Table(et.TableName) == nil {
			result.Add(ValidationError{
				Type: "unknown_table", Table: et.TableName, Severity: SeverityWarning,
				Message: fmt.Sprintf("Table '%s' exists in the database but not in the model", et.TableName),
			})
		}
	}
	for _, t := range db.CreatableTables() {
		if live[t.Name] {
			result.Add(ValidationError{
				Type: "table_exists", Table: t.Name, Severity: SeverityInfo,
				Message: fmt.Sprintf("Table '%s' already exists in database", t.Name),
			})
		}
	}
}

func validateTable(t *schema.Table, declared map[string]*schema.Table, result *ValidationResult) {
	if err := validateIdentifier("table", t.Name); err != nil {
		result.Add(ValidationError{Type: "table_name", Table: t.Name, Message: err.Error(), Severity: SeverityError})
	}
	if isReserved(t.Name) {
		result.Add(ValidationError{
			Type: "reserved_word", Table: t.Name, Severity: SeverityWarning,
			Message: fmt.Sprintf("Table name '%s' is a reserved keyword and must always be quoted", t.Name),
		})
	}
	if len(t.Columns) == 0 {
		result.Add(ValidationError{
			Type: "no_columns", Table: t.Name, Severity: SeverityError,
			Message: fmt.Sprintf("Table '%s' must have at least one column", t.Name),
		})
		return
	}

	validateColumns(t, declared, result)
	validateConstraints(t, result)
	validateIndexes(t, result)

	if t.Writable() && primaryKey(t) == nil {
		result.Add(ValidationError{
			Type: "no_primary_key", Table: t.Name, Severity: SeverityWarning,
			Message: fmt.Sprintf("Table '%s' has no primary key: get, update and delete by id are unavailable", t.Name),
		})
	}
}

func primaryKey(t *schema.Table) *schema.Column {
	for _, c := range t.Columns {
		if c.Kind == schema.KindPrimaryKey {
			return c
		}
	}
	return nil
}

func validateColumns(t *schema.Table, declared map[string]*schema.Table, result *ValidationResult) {
	seen := map[string]bool{}
	primaryKeys := 0
	for _, c := range t.Columns {
		colErr := func(typ, msg string, args ...any) {
			result.Add(ValidationError{Type: typ, Table: t.Name, Column: c.Name, Severity: SeverityError, Message: fmt.Sprintf(msg, args...)})
		}
		if seen[c.Name] {
			colErr("duplicate_column", "Duplicate column name '%s' in table '%s'", c.Name, t.Name)
			continue
		}
		seen[c.Name] = true

		if err := validateIdentifier("column", c.Name); err != nil {
			colErr("column_name", "%s", err.Error())
		}
		if isReserved(c.Name) {
			result.Add(ValidationError{
				Type: "reserved_word", Table: t.Name, Column: c.Name, Severity: SeverityWarning,
				Message: fmt.Sprintf("Column name '%s' is a reserved keyword", c.Name),
			})
		}

		switch c.Kind {
		case schema.KindPrimaryKey:
			primaryKeys++
			if primaryKeys == 2 {
				colErr("multiple_primary_keys", "Table '%s' has more than one primary key", t.Name)
			}
		case schema.KindForeignKey:
			validateForeignKey(t, c, declared, result)
		case schema.KindText:
			if c.MaxLength == 0 && slices.ContainsFunc(t.Indexes, func(idx *schema.Index) bool {
				return slices.Contains(idx.Columns, c.Name)
			}) {
				result.Add(ValidationError{
					Type: "unbounded_index_column", Table: t.Name, Column: c.Name, Severity: SeverityWarning,
					Message: fmt.Sprintf("Indexed text column '%s' has no max length; MySQL cannot index it", c.Name),
				})
			}
		case schema.KindSearchDocument:
			if len(c.Sources) == 0 {
				colErr("search_document", "Search document '%s' has no source columns", c.Name)
			}
			for _, src := range c.Sources {
				if sc := t.Column(src); sc == nil || !sc.Kind.IsText() {
					colErr("search_document", "Search document '%s' source '%s' is not a text column", c.Name, src)
				}
			}
		case schema.KindCustom:
			if c.SQLType == "" {
				colErr("data_type", "Custom column '%s' has no SQL type", c.Name)
			}
		case "":
			colErr("data_type", "Column '%s' has no kind", c.Name)
		}

		if c.Default != nil && c.CustomDefault != "" {
			colErr("default_value", "Column '%s' has both a literal and a custom default", c.Name)
		} else if c.Default != nil {
			if err := validateDefaultValue(c); err != nil {
				colErr("default_value", "%s", err.Error())
			}
		}
	}
}

func validateForeignKey(t *schema.Table, c *schema.Column, declared map[string]*schema.Table, result *ValidationResult) {
	fkErr := func(typ, msg string, args ...any) {
		result.Add(ValidationError{Type: typ, Table: t.Name, Column: c.Name, Severity: SeverityError, Message: fmt.Sprintf(msg, args...)})
	}
	if c.References == "" {
		fkErr("foreign_key", "Foreign key '%s' references no table", c.Name)
		return
	}
	ref := declared[c.References]
	switch {
	case ref == nil:
		fkErr("foreign_key_table_not_found", "Foreign key references non-existent or later table '%s'", c.References)
	case primaryKey(ref) == nil:
		fkErr("foreign_key_no_primary_key", "Foreign key references table '%s' which has no primary key", c.References)
	}
	for _, action := range []struct{ name, value string }{{"on delete", c.OnDelete}, {"on update", c.OnUpdate}} {
		if !slices.Contains(referentialActions, strings.ToLower(action.value)) {
			fkErr("foreign_key_action", "Invalid %s action '%s', must be one of: %s",
				action.name, action.value, strings.Join(referentialActions[1:], ", "))
		}
	}
	if strings.EqualFold(c.OnDelete, "set null") && !c.Null {
		fkErr("foreign_key_action", "Foreign key '%s' is not nullable but deletes set it to null", c.Name)
	}
	indexed := slices.ContainsFunc(t.Indexes, func(idx *schema.Index) bool {
		return len(idx.Columns) > 0 && idx.Columns[0] == c.Name
	})
	if !indexed {
		result.Add(ValidationError{
			Type: "unindexed_foreign_key", Table: t.Name, Column: c.Name, Severity: SeverityInfo,
			Message: fmt.Sprintf("Foreign key '%s' has no index starting with it", c.Name),
		})
	}
}

func validateDefaultValue(c *schema.Column) error {
	switch c.Kind {
	case schema.KindSearchDocument, schema.KindCustom:
		return fmt.Errorf("column '%s' of kind %s cannot have a literal default", c.Name, c.Kind)
	}
	if _, err := format.Bind(c, c.Default); err != nil {
		return fmt.Errorf("default value of '%s': %w", c.Name, err)
	}
	return nil
}

func validateConstraints(t *schema.Table, result *ValidationResult) {
	seen := map[string]bool{}
	for _, con := range t.AllConstraints() {
		name := t.Name + "__" + con.Name
		if seen[con.Name] {
			result.Add(ValidationError{
				Type: "duplicate_constraint", Table: t.Name, Index: con.Name, Severity: SeverityError,
				Message: fmt.Sprintf("Duplicate constraint name '%s' in table '%s'", con.Name, t.Name),
			})
			continue
		}
		seen[con.Name] = true
		if err := validateIdentifier("constraint", name); err != nil {
			result.Add(ValidationError{Type: "constraint_name", Table: t.Name, Index: con.Name, Message: err.Error(), Severity: SeverityError})
		}
		if con.Kind == schema.CheckConstraint && con.Check == nil {
			result.Add(ValidationError{
				Type: "check_constraint", Table: t.Name, Index: con.Name, Severity: SeverityError,
				Message: fmt.Sprintf("Check constraint '%s' has no expression", con.Name),
			})
		}
		for _, col := range con.Columns {
			if t.Column(col) == nil {
				result.Add(ValidationError{
					Type: "constraint_column_not_found", Table: t.Name, Index: con.Name, Column: col, Severity: SeverityError,
					Message: fmt.Sprintf("Constraint '%s' references non-existent column '%s' in table '%s'", con.Name, col, t.Name),
				})
			}
		}
	}
}

func validateIndexes(t *schema.Table, result *ValidationResult) {
	seen := map[string]bool{}
	for _, idx := range t.AllIndexes() {
		if seen[idx.Name] {
			result.Add(ValidationError{
				Type: "duplicate_index", Table: t.Name, Index: idx.Name, Severity: SeverityError,
				Message: fmt.Sprintf("Duplicate index name '%s' in table '%s'", idx.Name, t.Name),
			})
			continue
		}
		seen[idx.Name] = true

		// The full-text trigger function carries the longest derived name.
		name := generator.IndexName(t, idx)
		if idx.FullText {
			name = "fn_" + name + "_update_trigger"
		}
		if err := validateIdentifier("index", name); err != nil {
			result.Add(ValidationError{Type: "index_name", Table: t.Name, Index: idx.Name, Message: err.Error(), Severity: SeverityError})
		}
		if len(idx.Columns) == 0 {
			result.Add(ValidationError{
				Type: "index_no_columns", Table: t.Name, Index: idx.Name, Severity: SeverityError,
				Message: fmt.Sprintf("Index '%s' has no columns", idx.Name),
			})
		}
		for _, col := range idx.Columns {
			if t.Column(col) == nil {
				result.Add(ValidationError{
					Type: "index_column_not_found", Table: t.Name, Index: idx.Name, Column: col, Severity: SeverityError,
					Message: fmt.Sprintf("Index '%s' references non-existent column '%s' in table '%s'", idx.Name, col, t.Name),
				})
			}
		}
	}
}

func validateIdentifier(what, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", what)
	}
	if len(name) > schema.MaxIdentifierLength {
		return fmt.Errorf("%s name '%s' is too long (max %d characters)", what, name, schema.MaxIdentifierLength)
	}
	for i, char := range name {
		valid := char == '_' || (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (i > 0 && char >= '0' && char <= '9')
		if !valid {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", what, name, char)
		}
	}
	return nil
}

func isReserved(name string) bool {
	return slices.Contains(reservedKeywords, strings.ToLower(name))
}
