package generator

import (
	"io"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/ridoystarlord/dblayer/schema"
)

// GoName converts a snake_case database name into an exported Go name,
// keeping ID upper case.
func GoName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if strings.EqualFold(p, "id") {
			parts[i] = "ID"
			continue
		}
		parts[i] = inflect.Capitalize(p)
	}
	return strings.Join(parts, "")
}

// RecordName is the Go type name of the records of a table or query.
func RecordName(name string) string {
	return GoName(inflect.Singularize(name))
}

func goType(c *schema.Column) *jen.Statement {
	var typ *jen.Statement
	switch c.Kind {
	case schema.KindPrimaryKey, schema.KindForeignKey, schema.KindInteger:
		typ = jen.Int64()
	case schema.KindFloat:
		typ = jen.Float64()
	case schema.KindBoolean:
		typ = jen.Bool()
	case schema.KindDecimal, schema.KindText:
		typ = jen.String()
	case schema.KindDate, schema.KindDatetime:
		typ = jen.Qual("time", "Time")
	case schema.KindUUID:
		typ = jen.Qual("github.com/google/uuid", "UUID")
	default:
		return jen.Any()
	}
	if c.Null {
		return jen.Op("*").Add(typ)
	}
	return typ
}

// recordStruct declares the record type of a table or query. When key is
// set, Record leaves a zero key out so that the layer generates one.
func recordStruct(f *jen.File, name, doc string, columns []*schema.Column, key *schema.Column) {
	typeName := RecordName(name)
	if doc != "" {
		f.Comment(typeName + " " + doc)
	} else {
		f.Commentf("%s is a record of %s.", typeName, name)
	}
	fields := make([]jen.Code, 0, len(columns))
	for _, c := range columns {
		field := jen.Id(GoName(c.Name)).Add(goType(c)).Tag(map[string]string{"db": c.Name, "json": c.Name})
		if c.Doc != "" {
			field.Comment(c.Doc)
		}
		fields = append(fields, field)
	}
	f.Type().Id(typeName).Struct(fields...)

	f.Func().Params(jen.Id(typeName)).Id("Source").Params().String().Block(
		jen.Return(jen.Lit(name)),
	)

	body := []jen.Code{
		jen.Id("rec").Op(":=").Map(jen.String()).Any().ValuesFunc(func(g *jen.Group) {
			for _, c := range columns {
				g.Lit(c.Name).Op(":").Id("r").Dot(GoName(c.Name))
			}
		}),
	}
	if key != nil {
		body = append(body, jen.If(jen.Id("r").Dot(GoName(key.Name)).Op("==").Lit(0)).Block(
			jen.Id("delete").Call(jen.Id("rec"), jen.Lit(key.Name)),
		))
	}
	body = append(body, jen.Return(jen.Id("rec")))
	f.Func().Params(jen.Id("r").Op("*").Id(typeName)).Id("Record").Params().Map(jen.String()).Any().Block(body...)
}

// Records writes Go source declaring one struct per accessible table and
// per query of db, with db and json tags matching the column names.
func Records(w io.Writer, pkg string, db *schema.Database) error {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by dblayer. DO NOT EDIT.")
	for _, t := range db.Tables {
		var key *schema.Column
		if pk := t.PrimaryKey(); pk != nil && pk.Accessible() && !pk.Null {
			key = pk
		}
		recordStruct(f, t.Name, t.Doc, t.AccessibleColumns(), key)
	}
	for _, q := range db.Queries {
		columns := make([]*schema.Column, 0, len(q.Results))
		for _, r := range q.Results {
			c := *r.Type
			c.Name = r.Name
			columns = append(columns, &c)
		}
		recordStruct(f, q.Name, q.Doc, columns, nil)
	}
	return f.Render(w)
}
