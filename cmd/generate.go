package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/generator"
)

var (
	generateDialect string
	generateOutput  string
	generateCascade bool
	dryRunGenerate  bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateDialect, "dialect", "d", "", "SQL dialect (postgres, sqlite, mysql); defaults to the configured one")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "sql", "Directory the script is written to")
	generateCmd.Flags().BoolVar(&generateCascade, "cascade", false, "Drop with CASCADE")
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the SQL without writing files")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the SQL script creating and dropping the structure",
	Long: `Generate the SQL creating the whole structure (languages, procedures,
tables with their indexes, triggers) and the SQL dropping it again.

Examples:
  dblayer generate                    # Write sql/<timestamp>_<name>.sql
  dblayer generate --dialect sqlite   # Generate for SQLite
  dblayer generate --dry-run          # Print the SQL only
`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := loadSchema()
		if err != nil {
			fail("Loading schema", err)
		}
		d, err := offlineDialect(generateDialect)
		if err != nil {
			fail("Resolving dialect", err)
		}

		g := generator.New(d)
		create, err := g.CreateStructure(db)
		if err != nil {
			fail("Generating SQL", err)
		}
		drop := g.DropStructure(db, generateCascade)

		if dryRunGenerate {
			fmt.Println("\n================ DRY RUN: Structure Preview ================")
			fmt.Println("-- Create --")
			for _, stmt := range create.Statements() {
				fmt.Println(stmt)
			}
			fmt.Println("\n-- Drop --")
			for _, stmt := range drop.Statements() {
				fmt.Println(stmt)
			}
			fmt.Println("============================================================")
			fmt.Println("(Dry run only. No files were written.)")
			return
		}

		filename, err := generator.WriteScript(generateOutput, db.Name, create, drop)
		if err != nil {
			fail("Writing script file", err)
		}
		fmt.Println("✅ Script generated:", filename)
	},
}
