package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/diff"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the database matches the schema",
	Long: `Check the live database against the schema definition.

This command will:
- Verify database connectivity
- Introspect the tables of the public schema
- Report missing or extra tables, columns, foreign keys and indexes

It exits with status 1 when the database differs from the schema.

Examples:
  dblayer check                    # Check current state
  dblayer check --timeout 30s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		n, err := checkDatabaseSchema(cmd.Context())
		if err != nil {
			fail("Schema check failed", err)
		}
		if n > 0 {
			fmt.Printf("❌ Found %d differences. Run 'dblayer diff' for details\n", n)
			os.Exit(1)
		}
		fmt.Println("✅ Database matches the schema")
	},
}

var checkTimeout time.Duration

func init() {
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for schema check")
}

func checkDatabaseSchema(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	db, err := loadSchema()
	if err != nil {
		return 0, fmt.Errorf("failed to load schema: %w", err)
	}
	existing, err := introspectPublic(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to introspect database: %w", err)
	}
	fmt.Printf("📊 Found %d tables in the database, %d in the schema\n", len(existing), len(db.CreatableTables()))

	ops := diff.DiffSchemas(db, existing)
	for _, op := range ops {
		fmt.Println("  •", op)
	}
	return len(ops), nil
}
