package loader

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"

	"github.com/ridoystarlord/dblayer/format"
	"github.com/ridoystarlord/dblayer/schema"
)

// TagKey is the struct tag read by the tag loader.
const TagKey = "dblayer"

// TagLoader loads tables from Go structs whose fields carry dblayer tags.
type TagLoader struct {
	modelsDir string
}

// NewTagLoader creates a new tag loader
func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{
		modelsDir: modelsDir,
	}
}

// LoadTags loads the structs of modelsDir into a database named name.
func LoadTags(modelsDir, name string) (*schema.Database, error) {
	tables, err := NewTagLoader(modelsDir).Load()
	if err != nil {
		return nil, err
	}
	return schema.NewDatabase(name, tables, nil, nil)
}

// Load returns one table per tagged struct, ordered so referenced tables
// come before the tables pointing to them.
func (tl *TagLoader) Load() ([]*schema.Table, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory '%s' does not exist. Run 'dblayer init' first", tl.modelsDir)
	}

	var tables []*schema.Table
	err := filepath.Walk(tl.modelsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		fileTables, err := tl.parseGoFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		tables = append(tables, fileTables...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return schema.SortByReferences(tables), nil
}

func (tl *TagLoader) parseGoFile(filePath string) ([]*schema.Table, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Go file: %w", err)
	}

	var tables []*schema.Table
	var parseErr error
	ast.Inspect(node, func(n ast.Node) bool {
		spec, ok := n.(*ast.TypeSpec)
		if !ok || parseErr != nil {
			return parseErr == nil
		}
		st, ok := spec.Type.(*ast.StructType)
		if !ok {
			return true
		}
		t, err := tl.parseStruct(spec.Name.Name, st)
		if err != nil {
			parseErr = fmt.Errorf("struct %s: %w", spec.Name.Name, err)
			return false
		}
		if t != nil {
			tables = append(tables, t)
		}
		return true
	})
	return tables, parseErr
}

// parseStruct returns nil for structs without any tagged field.
func (tl *TagLoader) parseStruct(structName string, st *ast.StructType) (*schema.Table, error) {
	t := schema.NewTable(TableName(structName))
	tagged := false
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 || !ast.IsExported(field.Names[0].Name) {
			continue
		}
		tag, ok := tl.parseTag(field.Tag)
		if !ok {
			continue
		}
		tagged = true
		if tag.ignore {
			continue
		}
		col, err := tl.column(field.Names[0].Name, field.Type, tag)
		if err != nil {
			return nil, err
		}
		t.Columns = append(t.Columns, col)
		if tag.unique {
			t.Unique(col.Name, col.Name)
		}
		if tag.index {
			t.Index(col.Name, col.Name)
		}
	}
	if !tagged {
		return nil, nil
	}
	return t, nil
}

func (tl *TagLoader) column(fieldName string, typ ast.Expr, tag *fieldTag) (*schema.Column, error) {
	goType, pointer := tl.getFieldType(typ)
	name := tag.column
	if name == "" {
		name = toSnakeCase(fieldName)
	}
	kind := schema.ColumnKind(tag.kind)
	switch {
	case tag.primary:
		kind = schema.KindPrimaryKey
	case tag.references != "":
		kind = schema.KindForeignKey
	case kind == "":
		kind = inferKind(goType)
	}
	c := &schema.Column{
		Name:       name,
		Kind:       kind,
		Null:       pointer || tag.null,
		Hidden:     tag.hidden,
		MaxLength:  tag.maxLength,
		Serial:     tag.serial,
		References: tag.references,
		OnDelete:   tag.onDelete,
		OnUpdate:   tag.onUpdate,
		SQLType:    tag.sqlType,
	}
	switch kind {
	case schema.KindInteger:
		c.Digits = 18
	case schema.KindFloat:
		c.Double = goType != "float32"
	case schema.KindDecimal:
		c.Precision, c.Scale = 18, 2
	case schema.KindCustom:
		if c.SQLType == "" {
			return nil, fmt.Errorf("field %s: custom column needs sql_type", fieldName)
		}
	}
	if tag.defaultValue != nil {
		if strings.HasSuffix(*tag.defaultValue, "()") {
			c.CustomDefault = *tag.defaultValue
		} else {
			v, err := format.Parse(c, *tag.defaultValue)
			if err != nil {
				return nil, err
			}
			c.Default = v
		}
	}
	return c, nil
}

// fieldTag is a parsed dblayer tag, e.g.
// `dblayer:"column:email;type:text;max_length:255;unique"`.
type fieldTag struct {
	ignore       bool
	column       string
	kind         string
	primary      bool
	serial       bool
	unique       bool
	index        bool
	null         bool
	hidden       bool
	maxLength    int
	sqlType      string
	defaultValue *string
	references   string
	onDelete     string
	onUpdate     string
}

// parseTag reports false for fields without a dblayer tag.
func (tl *TagLoader) parseTag(lit *ast.BasicLit) (*fieldTag, bool) {
	if lit == nil {
		return nil, false
	}
	raw, err := strconv.Unquote(lit.Value)
	if err != nil {
		return nil, false
	}
	value, ok := reflect.StructTag(raw).Lookup(TagKey)
	if !ok {
		return nil, false
	}
	tag := &fieldTag{}
	if value == "-" {
		tag.ignore = true
		return tag, true
	}
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, hasValue := strings.Cut(part, ":")
		if hasValue {
			key, val = strings.TrimSpace(key), strings.TrimSpace(val)
			switch key {
			case "column":
				tag.column = val
			case "type":
				tag.kind = val
			case "sql_type":
				tag.sqlType = val
				tag.kind = string(schema.KindCustom)
			case "max_length":
				tag.maxLength, _ = strconv.Atoi(val)
			case "default":
				tag.defaultValue = &val
			case "fk":
				// table[:on_delete[:on_update]]
				parts := strings.Split(val, ":")
				tag.references = parts[0]
				if len(parts) > 1 {
					tag.onDelete = parts[1]
				}
				if len(parts) > 2 {
					tag.onUpdate = parts[2]
				}
			}
			continue
		}
		switch part {
		case "primary":
			tag.primary = true
		case "serial":
			tag.primary, tag.serial = true, true
		case "unique":
			tag.unique = true
		case "index":
			tag.index = true
		case "null":
			tag.null = true
		case "hidden":
			tag.hidden = true
		}
	}
	return tag, true
}

// getFieldType extracts the Go type name and whether it is a pointer.
func (tl *TagLoader) getFieldType(expr ast.Expr) (string, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, false
	case *ast.StarExpr:
		name, _ := tl.getFieldType(t.X)
		return name, true
	case *ast.ArrayType:
		name, _ := tl.getFieldType(t.Elt)
		return "[]" + name, false
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name, false
		}
	}
	return "", false
}

// TableName converts a struct name to its table name: User becomes users,
// OrderItem becomes order_items.
func TableName(structName string) string {
	return inflect.Pluralize(toSnakeCase(structName))
}

// toSnakeCase converts PascalCase to snake_case, keeping acronyms whole:
// OrderID becomes order_id.
func toSnakeCase(s string) string {
	var sb strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return sb.String()
}

func inferKind(goType string) schema.ColumnKind {
	switch goType {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32":
		return schema.KindInteger
	case "bool":
		return schema.KindBoolean
	case "float32", "float64":
		return schema.KindFloat
	case "time.Time":
		return schema.KindDatetime
	case "uuid.UUID":
		return schema.KindUUID
	case "decimal.Decimal":
		return schema.KindDecimal
	}
	return schema.KindText
}
