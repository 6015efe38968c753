package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/dblayer/layer"
	"github.com/ridoystarlord/dblayer/query"
)

var (
	queryOrder  []string
	queryLimit  int
	queryOffset int
	queryCount  bool
	queryOne    bool
	queryFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query <table-or-query> [condition=value...]",
	Short: "List the rows of a table or named query",
	Long: `List the rows of a table or named query matching keyword conditions.

Conditions are written name=value where name is a column or result name,
optionally followed by an operator suffix: __eq, __ne, __lt, __le, __gt,
__ge, __in, __notin, __like, __ilike, __isnull, __notnull. Lists for __in are
comma separated.

Examples:
  dblayer query author active=true --order -created --limit 10
  dblayer query post author_id__in=1,2,3 --count
  dblayer query author_stats posts__gt=5 --format json
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		err := withLayer(cmd.Context(), func(l *layer.Layer, s *layer.Session) error {
			src, err := l.Source(name)
			if err != nil {
				return err
			}
			conditions, err := src.Conditions.ParseArgs(args[1:])
			if err != nil {
				return err
			}
			filter := query.Filter{
				Conditions: conditions,
				OrderBy:    queryOrder,
				Limit:      queryLimit,
				Offset:     queryOffset,
			}
			isTable := l.Database.Table(name) != nil

			switch {
			case queryCount:
				var n int64
				if isTable {
					n, err = s.Count(cmd.Context(), name, filter)
				} else {
					n, err = s.QueryCount(cmd.Context(), name, filter)
				}
				if err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			case queryOne:
				var rec layer.Record
				if isTable {
					rec, err = s.Find(cmd.Context(), name, filter)
				} else {
					rec, err = s.QueryFind(cmd.Context(), name, filter)
				}
				if err != nil {
					return err
				}
				if rec == nil {
					fmt.Println("⚠️  No row found")
					return nil
				}
				return writeRecords(os.Stdout, []layer.Record{rec})
			}

			var recs []layer.Record
			if isTable {
				recs, err = s.List(cmd.Context(), name, filter)
			} else {
				recs, err = s.QueryList(cmd.Context(), name, filter)
			}
			if err != nil {
				return err
			}
			return writeRecords(os.Stdout, recs)
		})
		if err != nil {
			fail("Query failed", err)
		}
	},
}

func writeRecords(w io.Writer, recs []layer.Record) error {
	if recs == nil {
		recs = []layer.Record{}
	}
	if queryFormat == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(recs)
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(recs); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryOrder, "order", "o", nil, "Sort keys, prefixed with - for descending order")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum number of rows")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "Number of rows skipped")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "Print the number of matching rows")
	queryCmd.Flags().BoolVar(&queryOne, "one", false, "Print the first matching row only")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "yaml", "Output format (yaml, json)")
}
