package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const configTemplate = `# dblayer configuration. DBLAYER_<KEY> environment variables override
# these values; DATABASE_URL is used when database_url is empty.
database_url: ""
# dialect: postgres
# driver: pgx
schema: schema.yaml
debug: false
log_sql: false
log_result_rows: false
profile_queries: false
analyze_queries: false
max_insert_retry: 10
`

const schemaTemplate = `name: blog
tables:
  - name: author
    columns:
      - {name: id, type: primary_key, serial: true}
      - {name: email, type: text, max_length: 255}
      - {name: name, type: text, max_length: 100}
      - {name: active, type: boolean, default: true}
      - {name: created, type: datetime, custom_default: "now()"}
    unique:
      - {name: email, columns: [email]}

  - name: post
    columns:
      - {name: id, type: primary_key, serial: true}
      - {name: author_id, type: foreign_key, references: author, on_delete: cascade}
      - {name: title, type: text, max_length: 200}
      - {name: body, type: text, nullable: true}
      - {name: views, type: integer, digits: 9, default: 0}
      - {name: published, type: datetime, nullable: true}
    indexes:
      - {name: author, columns: [author_id]}
    checks:
      - {name: views_positive, sql: "views >= 0"}

  - name: tag
    columns:
      - {name: id, type: primary_key}
      - {name: name, type: text, max_length: 50}
    indexes:
      - {name: name, columns: [name], unique: true}

queries:
  - name: author_stats
    doc: posts and views per author
    from:
      - {alias: p, table: post}
      - {alias: a, table: author, referer: p, foreign_key: author_id}
    select:
      - {name: email, expr: a.email}
      - name: posts
        expr: {fn: count, args: [p.id]}
        type: {type: integer, digits: 18}
      - name: views
        expr: {fn: sum, args: [p.views]}
        type: {type: integer, digits: 18}
    where:
      - {name: published, expr: p.published}
    group_by: [a.email]
    order_by: ["-views", email]
`

const modelsTemplate = `package models

import "time"

// Author writes posts.
type Author struct {
	ID      int64     ` + "`dblayer:\"serial\"`" + `
	Email   string    ` + "`dblayer:\"max_length:255;unique\"`" + `
	Name    string    ` + "`dblayer:\"max_length:100\"`" + `
	Active  bool      ` + "`dblayer:\"default:true\"`" + `
	Created time.Time ` + "`dblayer:\"default:now()\"`" + `
}

// Post belongs to an author.
type Post struct {
	ID        int64      ` + "`dblayer:\"serial\"`" + `
	AuthorID  int64      ` + "`dblayer:\"fk:authors:cascade;index\"`" + `
	Title     string     ` + "`dblayer:\"max_length:200\"`" + `
	Body      *string    ` + "`dblayer:\"type:text\"`" + `
	Views     int64      ` + "`dblayer:\"default:0\"`" + `
	Published *time.Time ` + "`dblayer:\"column:published\"`" + `
}

// Tag has a client supplied key.
type Tag struct {
	ID   int64  ` + "`dblayer:\"primary\"`" + `
	Name string ` + "`dblayer:\"max_length:50;unique\"`" + `
}
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new dblayer project",
	Long: `Initialize a new dblayer project: a dblayer.yaml configuration and an
example schema.

By default the schema is a YAML file. With --tags a models directory with
tagged Go structs is created instead.

Examples:
  dblayer init                    # dblayer.yaml and schema.yaml
  dblayer init --tags             # dblayer.yaml and models/models.go`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeNew("dblayer.yaml", configTemplate); err != nil {
			fail("Creating dblayer.yaml", err)
		}

		if !useTags {
			if err := writeNew(schemaFile, schemaTemplate); err != nil {
				fail("Creating "+schemaFile, err)
			}
			fmt.Println("📝 Edit", schemaFile, "to define your database schema")
			fmt.Println("🚀 Run 'dblayer create' to create the tables")
			return
		}

		if err := os.MkdirAll(modelsDir, 0755); err != nil {
			fail("Creating models directory", err)
		}
		if err := writeNew(filepath.Join(modelsDir, "models.go"), modelsTemplate); err != nil {
			fail("Creating models", err)
		}
		fmt.Println("📁 Directory:", modelsDir)
		fmt.Println("📝 Edit the structs in", filepath.Join(modelsDir, "models.go"), "to define your database schema")
		fmt.Println("🚀 Run 'dblayer create --tags' to create the tables")
	},
}

// writeNew writes a file unless it already exists.
func writeNew(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("⚠️  %s already exists, leaving it alone\n", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}
	fmt.Println("✅ Created", path)
	return nil
}
