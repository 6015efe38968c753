package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/graph"
	"github.com/ridoystarlord/dblayer/schema"
)

var (
	docsFormat string
	docsOutput string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Export the table graph of the schema",
	Long: `Export the tables of the schema and their foreign keys as a diagram.

Supported formats:
  - gml: Graph Modelling Language
  - mermaid: Mermaid ER diagram
  - dot: Graphviz DOT
  - plantuml: PlantUML ER diagram
  - all: every format, one file per format in the output directory

Examples:
  dblayer docs --format mermaid               # Print to stdout
  dblayer docs --format dot --output erd.dot
  dblayer docs --format all --output docs/
`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := loadSchema()
		if err != nil {
			fail("Loading schema", err)
		}

		if docsFormat != "all" {
			if err := exportGraph(db, graph.Format(docsFormat), docsOutput); err != nil {
				fail("Exporting graph", err)
			}
			return
		}

		dir := docsOutput
		if dir == "" {
			dir = "docs"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			fail("Creating output directory", err)
		}
		formats := make([]graph.Format, 0, len(graph.Formats))
		for f := range graph.Formats {
			formats = append(formats, f)
		}
		slices.Sort(formats)
		for _, f := range formats {
			path := filepath.Join(dir, db.Name+graph.Formats[f])
			if err := exportGraph(db, f, path); err != nil {
				fail("Exporting graph", err)
			}
		}
	},
}

func init() {
	docsCmd.Flags().StringVarP(&docsFormat, "format", "f", "mermaid", "Output format (gml, mermaid, dot, plantuml, all)")
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Output file, or directory for --format all (default stdout)")
}

func exportGraph(db *schema.Database, f graph.Format, path string) error {
	if path == "" {
		return graph.Export(os.Stdout, db, f)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := graph.Export(file, db, f); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Println("✅ Written", path)
	return nil
}
