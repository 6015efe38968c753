package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/generator"
)

var (
	recordsOutput  string
	recordsPackage string
)

func init() {
	recordsCmd.Flags().StringVarP(&recordsOutput, "output", "o", "records", "Output directory for the generated file")
	recordsCmd.Flags().StringVarP(&recordsPackage, "package", "p", "records", "Package name of the generated file")
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Generate Go record structs from the schema",
	Long: `Generate one Go struct per table and per query of the schema, with db and
json tags matching the column names and conversions from and to records.

Examples:
  dblayer records                          # Write records/records.go
  dblayer records -o internal/store -p store
`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := loadSchema()
		if err != nil {
			fail("Loading schema", err)
		}
		if err := os.MkdirAll(recordsOutput, 0755); err != nil {
			fail("Creating output directory", err)
		}

		path := filepath.Join(recordsOutput, recordsPackage+".go")
		file, err := os.Create(path)
		if err != nil {
			fail("Creating "+path, err)
		}
		defer file.Close()
		if err := generator.Records(file, recordsPackage, db); err != nil {
			fail("Generating records", err)
		}
		fmt.Println("✅ Records generated:", path)
	},
}
