package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/introspect"
	"github.com/ridoystarlord/dblayer/loader"
)

var (
	inspectOutput string
	inspectName   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Write a schema document describing the live database",
	Long: `Introspect the tables of the public schema and write them as a schema
YAML document, a starting point for a database that already exists.

Examples:
  dblayer inspect                      # Print the document
  dblayer inspect -o schema.yaml       # Write it to a file
`,
	Run: func(cmd *cobra.Command, args []string) {
		existing, err := introspectPublic(cmd.Context())
		if err != nil {
			fail("Introspecting database", err)
		}
		out, err := loader.MarshalTables(inspectName, introspect.Tables(existing))
		if err != nil {
			fail("Rendering schema", err)
		}

		if inspectOutput == "" {
			os.Stdout.Write(out)
			return
		}
		if err := os.WriteFile(inspectOutput, out, 0644); err != nil {
			fail("Writing "+inspectOutput, err)
		}
		fmt.Printf("✅ %d tables written to %s\n", len(existing), inspectOutput)
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "", "Output file (default stdout)")
	inspectCmd.Flags().StringVar(&inspectName, "name", "public", "Database name written to the document")
}
