package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/dblayer/config"
)

var (
	configFile string
	schemaFile string
	modelsDir  string
	useTags    bool

	opts config.Options
)

var rootCmd = &cobra.Command{
	Use:   "dblayer",
	Short: "A database abstraction layer built from a schema definition",
	Long: `dblayer builds tables, queries and the SQL to manage them from a schema
definition: a YAML file (default) or Go structs with dblayer tags.

Examples:

  dblayer init
  dblayer generate
  dblayer create
  dblayer query user email__ilike=%@example.com --limit 10
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if opts, err = config.Load(configFile); err != nil {
			return err
		}
		if cmd.Flags().Changed("schema") || opts.Schema == "" {
			opts.Schema = schemaFile
		}
		return opts.ConfigureLogging()
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default dblayer.yaml)")
	rootCmd.PersistentFlags().StringVarP(&schemaFile, "schema", "s", "schema.yaml", "Schema YAML file to load")
	rootCmd.PersistentFlags().StringVarP(&modelsDir, "models", "m", "models", "Models directory to load structs from")
	rootCmd.PersistentFlags().BoolVar(&useTags, "tags", false, "Load the schema from tagged Go structs instead of YAML")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(truncateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(diffCmd)
}
