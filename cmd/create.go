package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/layer"
)

var dropCascade bool

var createCmd = &cobra.Command{
	Use:   "create [table...]",
	Short: "Create the structure or the named tables",
	Long: `Create the whole structure (languages, procedures, tables, indexes and
triggers) in one transaction, or only the named tables.

Examples:
  dblayer create                  # Create everything
  dblayer create author post      # Create two tables
`,
	Run: func(cmd *cobra.Command, args []string) {
		err := withSession(cmd.Context(), func(s *layer.Session) error {
			if len(args) == 0 {
				return s.CreateStructure(cmd.Context())
			}
			return eachTable(cmd.Context(), args, s.CreateTable)
		})
		if err != nil {
			fail("Creating structure", err)
		}
		fmt.Println("✅ Structure created")
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop [table...]",
	Short: "Drop the structure or the named tables",
	Long: `Drop the whole structure in reverse creation order, or only the named
tables.

Examples:
  dblayer drop                    # Drop everything
  dblayer drop post --cascade     # Drop one table and its dependents
`,
	Run: func(cmd *cobra.Command, args []string) {
		err := withSession(cmd.Context(), func(s *layer.Session) error {
			if len(args) == 0 {
				return s.DropStructure(cmd.Context(), dropCascade)
			}
			return eachTable(cmd.Context(), args, func(ctx context.Context, name string) error {
				return s.DropTable(ctx, name, dropCascade)
			})
		})
		if err != nil {
			fail("Dropping structure", err)
		}
		fmt.Println("✅ Structure dropped")
	},
}

var truncateCmd = &cobra.Command{
	Use:   "truncate [table...]",
	Short: "Delete every row of the writable tables or of the named tables",
	Run: func(cmd *cobra.Command, args []string) {
		err := withSession(cmd.Context(), func(s *layer.Session) error {
			if len(args) == 0 {
				return s.TruncateAllTables(cmd.Context())
			}
			return eachTable(cmd.Context(), args, s.Truncate)
		})
		if err != nil {
			fail("Truncating", err)
		}
		fmt.Println("✅ Tables truncated")
	},
}

func eachTable(ctx context.Context, names []string, fn func(context.Context, string) error) error {
	for _, name := range names {
		if err := fn(ctx, name); err != nil {
			return err
		}
		fmt.Println("  •", name)
	}
	return nil
}

func init() {
	dropCmd.Flags().BoolVar(&dropCascade, "cascade", false, "Drop with CASCADE")
}
