package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/diff"
	"github.com/ridoystarlord/dblayer/generator"
	"github.com/ridoystarlord/dblayer/layer"
)

var (
	diffApply  bool
	diffDryRun bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between schema and database",
	Long: `Show differences between the schema definition and the live database.

Missing tables and indexes can be created with --apply. Other differences
are only reported.

Examples:
  dblayer diff                    # Show differences grouped by table
  dblayer diff --dry-run          # Print the SQL creating what is missing
  dblayer diff --apply            # Create the missing tables and indexes
`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := loadSchema()
		if err != nil {
			fail("Loading schema", err)
		}
		existing, err := introspectPublic(cmd.Context())
		if err != nil {
			fail("Introspecting database", err)
		}

		ops := diff.DiffSchemas(db, existing)
		if len(ops) == 0 {
			fmt.Println("✅ No differences found between schema and database")
			return
		}
		showDiff(ops)

		switch {
		case diffDryRun:
			d, err := offlineDialect("")
			if err != nil {
				fail("Resolving dialect", err)
			}
			plan, err := diff.Fix(generator.New(d), ops)
			if err != nil {
				fail("Generating SQL", err)
			}
			fmt.Println("-- Fix --")
			for _, stmt := range plan.Statements() {
				fmt.Println(stmt)
			}
		case diffApply:
			err := withLayer(cmd.Context(), func(l *layer.Layer, s *layer.Session) error {
				plan, err := diff.Fix(l.Generator, ops)
				if err != nil {
					return err
				}
				if len(plan) == 0 {
					fmt.Println("⚠️  Nothing can be applied automatically")
					return nil
				}
				return s.Runner().ExecutePlan(cmd.Context(), plan)
			})
			if err != nil {
				fail("Applying changes", err)
			}
			fmt.Println("✅ Missing tables and indexes created")
		default:
			os.Exit(1)
		}
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffApply, "apply", false, "Create the missing tables and indexes")
	diffCmd.Flags().BoolVar(&diffDryRun, "dry-run", false, "Print the SQL --apply would run")
}

func showDiff(ops []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println("🌳 Schema Changes")
	fmt.Println(strings.Repeat("=", 50))

	var current string
	for _, op := range ops {
		if op.TableName != current {
			current = op.TableName
			fmt.Printf("\n📋 %s\n", current)
		}
		target := op.ColumnName
		if op.IndexName != "" {
			target = op.IndexName
		}
		if target != "" && op.Detail != "" {
			target += ": " + op.Detail
		} else if op.Detail != "" {
			target = op.Detail
		}

		switch op.Type {
		case diff.MissingTable:
			green.Println("  ➕ CREATE TABLE")
		case diff.ExtraTable:
			red.Println("  ❌ NOT IN SCHEMA")
		case diff.MissingColumn, diff.MissingForeignKey, diff.MissingIndex:
			green.Printf("  ➕ %s %s\n", op.Type, target)
		case diff.ExtraColumn, diff.ExtraForeignKey, diff.ExtraIndex:
			red.Printf("  ➖ %s %s\n", op.Type, target)
		default:
			yellow.Printf("  ⚡ %s %s\n", op.Type, target)
		}
	}
	fmt.Println()
}
