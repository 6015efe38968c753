// Package graph exports the table graph of a database: one node per table,
// one edge per foreign key, pointing from the referencing table to the
// referenced one.
package graph

import (
	"fmt"
	"io"
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/schema"
)

type Format string

const (
	GML      Format = "gml"
	Mermaid  Format = "mermaid"
	DOT      Format = "dot"
	PlantUML Format = "plantuml"
)

// Formats lists the supported formats with their usual file extension.
var Formats = map[Format]string{
	GML:      ".gml",
	Mermaid:  ".md",
	DOT:      ".dot",
	PlantUML: ".puml",
}

// Export writes the graph of db to w.
func Export(w io.Writer, db *schema.Database, f Format) error {
	var content string
	switch f {
	case GML:
		content = gmlContent(db)
	case Mermaid:
		content = mermaidContent(db)
	case DOT:
		content = dotContent(db)
	case PlantUML:
		content = plantUMLContent(db)
	default:
		return dblayer.NewFormatError(string(f), "unsupported graph format")
	}
	_, err := io.WriteString(w, content)
	return err
}

func kindName(c *schema.Column) string {
	return generator.GoName(string(c.Kind))
}

// columnLabel renders name:Kind, NULL for nullable columns and an arrow
// for foreign keys.
func columnLabel(c *schema.Column) string {
	label := c.Name + ":" + kindName(c)
	if c.Null {
		label += " NULL"
	}
	if c.Kind == schema.KindForeignKey {
		label += "->"
	}
	return label
}

func foreignKeys(t *schema.Table) []*schema.Column {
	var fks []*schema.Column
	for _, c := range t.Columns {
		if c.Kind == schema.KindForeignKey {
			fks = append(fks, c)
		}
	}
	return fks
}

func gmlString(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return `"` + strings.ReplaceAll(s, "\n", "&#10;") + `"`
}

func gmlContent(db *schema.Database) string {
	var sb strings.Builder
	ids := map[string]int{}
	sb.WriteString("graph [\n  directed 1\n  multigraph 1\n")
	for i, t := range db.Tables {
		ids[t.Name] = i
		labels := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			labels = append(labels, columnLabel(c))
		}
		label := strings.ToUpper(t.Name) + "\n\n" + strings.Join(labels, "\n")
		fmt.Fprintf(&sb, "  node [\n    id %d\n    label %s\n  ]\n", i, gmlString(label))
	}
	for _, t := range db.Tables {
		for _, fk := range foreignKeys(t) {
			fmt.Fprintf(&sb, "  edge [\n    source %d\n    target %d\n    label %s\n  ]\n",
				ids[t.Name], ids[fk.References], gmlString(fk.Name))
		}
	}
	sb.WriteString("]\n")
	return sb.String()
}

func markers(c *schema.Column, unique map[string]bool, sep string, pk, uk, fk string) string {
	var out []string
	switch {
	case c.Kind == schema.KindPrimaryKey:
		out = append(out, pk)
	case c.Kind == schema.KindForeignKey:
		out = append(out, fk)
	case unique[c.Name]:
		out = append(out, uk)
	}
	return strings.Join(out, sep)
}

// uniqueColumns lists the columns carrying a single column unique
// constraint or index.
func uniqueColumns(t *schema.Table) map[string]bool {
	out := map[string]bool{}
	for _, con := range t.Constraints {
		if con.Kind == schema.UniqueConstraint && len(con.Columns) == 1 {
			out[con.Columns[0]] = true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Columns) == 1 {
			out[idx.Columns[0]] = true
		}
	}
	return out
}

func mermaidContent(db *schema.Database) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n```mermaid\nerDiagram\n", db.Name)
	for _, t := range db.Tables {
		unique := uniqueColumns(t)
		fmt.Fprintf(&sb, "    %s {\n", t.Name)
		for _, c := range t.Columns {
			line := fmt.Sprintf("        %s %s", kindName(c), c.Name)
			if m := markers(c, unique, ",", "PK", "UK", "FK"); m != "" {
				line += " " + m
			}
			if c.Doc != "" {
				line += fmt.Sprintf(" %q", c.Doc)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("    }\n")
	}
	for _, t := range db.Tables {
		for _, fk := range foreignKeys(t) {
			card := "||--o{"
			if fk.Null {
				card = "|o--o{"
			}
			fmt.Fprintf(&sb, "    %s %s %s : %s\n", fk.References, card, t.Name, fk.Name)
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func dotContent(db *schema.Database) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n  rankdir=LR;\n  node [shape=record];\n\n", db.Name)
	for _, t := range db.Tables {
		unique := uniqueColumns(t)
		columns := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			line := columnLabel(c)
			if m := markers(c, unique, " ", "(PK)", "(UQ)", "(FK)"); m != "" {
				line += " " + m
			}
			columns = append(columns, strings.NewReplacer(">", `\>`, "<", `\<`, "|", `\|`).Replace(line))
		}
		fmt.Fprintf(&sb, "  %q [label=\"%s|%s\\l\"];\n", t.Name, t.Name, strings.Join(columns, `\l`))
	}
	for _, t := range db.Tables {
		for _, fk := range foreignKeys(t) {
			fmt.Fprintf(&sb, "  %q -> %q [label=%q];\n", t.Name, fk.References, fk.Name)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func plantUMLContent(db *schema.Database) string {
	var sb strings.Builder
	sb.WriteString("@startuml\n!theme plain\nskinparam linetype ortho\n\n")
	for _, t := range db.Tables {
		unique := uniqueColumns(t)
		fmt.Fprintf(&sb, "entity %q {\n", t.Name)
		for _, c := range t.Columns {
			line := fmt.Sprintf("  %s : %s", c.Name, kindName(c))
			if m := markers(c, unique, " ", "<<PK>>", "<<UQ>>", "<<FK>>"); m != "" {
				line += " " + m
			}
			if !c.Null {
				line += " <<NN>>"
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("}\n\n")
	}
	for _, t := range db.Tables {
		for _, fk := range foreignKeys(t) {
			fmt.Fprintf(&sb, "%q ||--o{ %q : %q\n", fk.References, t.Name, fk.Name)
		}
	}
	sb.WriteString("@enduml\n")
	return sb.String()
}
