package query

import (
	"strings"

	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/schema"
)

// FromItem is one entry of a FROM clause. An item without Join starts a
// new cross join group; Alias may then be empty for a bare table. Join
// items are joined on "Alias"."PrimaryKey" = "Referer"."ForeignKey".
type FromItem struct {
	Table string
	Alias string

	Join       schema.JoinType
	Referer    string
	ForeignKey string
	PrimaryKey string
}

// FromItems lists the tables of a bound query.
func FromItems(q *schema.Query) []FromItem {
	items := make([]FromItem, 0, len(q.Tables))
	for _, qt := range q.Tables {
		item := FromItem{Table: qt.Table, Alias: qt.Alias}
		if jt := qt.JoinType(); jt != "" {
			item.Join = jt
			item.Referer = qt.Referer
			item.ForeignKey = qt.ForeignKey
			item.PrimaryKey = qt.Source().PrimaryKey().Name
		}
		items = append(items, item)
	}
	return items
}

// FormatFrom renders the FROM clause body. Groups are combined with CROSS
// JOIN so later joins may refer to any earlier alias.
func FormatFrom(d dialect.Dialect, items []FromItem) string {
	var sb strings.Builder
	for i, it := range items {
		switch {
		case it.Join != "":
			sb.WriteString(" " + string(it.Join) + " ")
		case i > 0:
			sb.WriteString(" CROSS JOIN ")
		}
		sb.WriteString(d.QuoteIdent(it.Table))
		if it.Alias != "" {
			sb.WriteString(" AS " + d.QuoteIdent(it.Alias))
		}
		if it.Join != "" {
			sb.WriteString(" ON " +
				d.QuoteIdent(it.Alias) + "." + d.QuoteIdent(it.PrimaryKey) + " = " +
				d.QuoteIdent(it.Referer) + "." + d.QuoteIdent(it.ForeignKey))
		}
	}
	return sb.String()
}
