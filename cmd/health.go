package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/database"
	"github.com/ridoystarlord/dblayer/layer"
	"github.com/ridoystarlord/dblayer/query"
)

var (
	healthTimeout time.Duration
	healthTables  bool
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  dblayer health                    # Check the configured connection
  dblayer health --timeout 10s      # Set custom timeout
  dblayer health --tables           # Also count the rows of every table
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		if err := checkDatabaseHealth(ctx); err != nil {
			fail("Database health check failed", err)
		}
		if healthTables {
			if err := countTables(ctx); err != nil {
				fail("Counting rows", err)
			}
		}
		fmt.Println("✅ Database is healthy and accessible")
	},
}

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
	healthCmd.Flags().BoolVar(&healthTables, "tables", false, "Count the rows of every table of the schema")
}

func checkDatabaseHealth(ctx context.Context) error {
	conn, err := database.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	fmt.Printf("🔌 Connected (%s)\n", conn.Dialect.Name())
	return nil
}

func countTables(ctx context.Context) error {
	return withLayer(ctx, func(l *layer.Layer, s *layer.Session) error {
		fmt.Println("📊 Rows per table:")
		for _, t := range l.Database.CreatableTables() {
			n, err := s.Count(ctx, t.Name, query.Filter{})
			if err != nil {
				fmt.Printf("  ⚠️  %s: %v\n", t.Name, err)
				// A failed statement aborts the PostgreSQL transaction.
				return nil
			}
			fmt.Printf("  • %s: %d\n", t.Name, n)
		}
		return nil
	})
}
