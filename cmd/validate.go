package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Lint the schema definition",
	Long: `Lint the schema definition and report every problem at once.

This command checks:
- Table, column, constraint and index names (identifier rules, length of
  the generated names, reserved keywords)
- Foreign keys (declared target with a primary key, referential actions)
- Index and constraint columns
- Default values against the column kinds

With a PostgreSQL DATABASE_URL configured it also lists the tables that
already exist in the database.

Examples:
  dblayer validate                    # Validate schema.yaml
  dblayer validate --schema shop.yaml # Validate another schema file
  dblayer validate --format json      # Output validation results as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateSchema(cmd); err != nil {
			fail("Schema validation failed", err)
		}
	},
}

var validateFormat string

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
}

func validateSchema(cmd *cobra.Command) error {
	tables, err := loadTables()
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	result := validator.ValidateTables(tables)

	if result.Valid {
		// Queries and procedures are checked when the database is bound.
		db, err := loadSchema()
		switch {
		case err != nil:
			result.Add(validator.ValidationError{Type: "schema", Message: err.Error(), Severity: validator.SeverityError})
		case opts.DatabaseURL != "":
			existing, err := introspectPublic(cmd.Context())
			if err != nil {
				fmt.Println("⚠️  Skipping database checks:", err)
				break
			}
			validator.CompareExisting(result, db, existing)
		}
	}

	if validateFormat == "json" {
		if err := outputJSON(os.Stdout, result); err != nil {
			return err
		}
	} else {
		outputText(os.Stdout, result)
	}
	if !result.Valid {
		os.Exit(1)
	}
	return nil
}

func outputJSON(w io.Writer, result *validator.ValidationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printIssues(w io.Writer, title string, issues []validator.ValidationError) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(issues))
	for i, issue := range issues {
		fmt.Fprintf(w, "  %d. ", i+1)
		if issue.Table != "" {
			fmt.Fprintf(w, "[%s]", issue.Table)
		}
		if issue.Column != "" {
			fmt.Fprintf(w, ".%s", issue.Column)
		}
		if issue.Index != "" {
			fmt.Fprintf(w, " (index: %s)", issue.Index)
		}
		fmt.Fprintf(w, ": %s\n", issue.Message)
	}
}

func outputText(w io.Writer, result *validator.ValidationResult) {
	if result.Valid {
		color.New(color.FgGreen).Fprintln(w, "✅ Schema validation passed!")
	} else {
		color.New(color.FgRed).Fprintln(w, "❌ Schema validation failed!")
	}

	printIssues(w, "🔴 Errors", result.Errors)
	printIssues(w, "🟡 Warnings", result.Warnings)
	printIssues(w, "🔵 Info", result.Info)

	fmt.Fprintf(w, "\n📊 Summary:\n")
	fmt.Fprintf(w, "  • Errors: %d\n", len(result.Errors))
	fmt.Fprintf(w, "  • Warnings: %d\n", len(result.Warnings))
	fmt.Fprintf(w, "  • Info: %d\n", len(result.Info))

	if result.Valid {
		fmt.Fprintf(w, "\n🎉 Your schema is valid!\n")
	} else {
		fmt.Fprintf(w, "\n💡 Fix the errors above before creating the structure.\n")
	}
}
