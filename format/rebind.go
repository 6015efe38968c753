package format

import (
	"strings"

	"github.com/ridoystarlord/dblayer/dialect"
)

// scanPlaceholders calls fn for every ? outside quoted literals and quoted
// identifiers, copying everything else to the result.
func scanPlaceholders(sql string, fn func() string) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			sb.WriteByte(c)
		case c == '\'' || c == '"' || c == '`':
			quote = c
			sb.WriteByte(c)
		case c == '?':
			sb.WriteString(fn())
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func countPlaceholders(sql string) int {
	n := 0
	scanPlaceholders(sql, func() string { n++; return "?" })
	return n
}

func replacePlaceholders(sql string, fn func() string) string {
	return scanPlaceholders(sql, fn)
}

// Rebind rewrites the ? placeholders of sql into the dialect's own marker.
// Doubled quotes inside literals toggle the quote state twice and need no
// special handling.
func Rebind(d dialect.Dialect, sql string) string {
	if d.Placeholder(1) == "?" {
		return sql
	}
	n := 0
	return scanPlaceholders(sql, func() string {
		n++
		return d.Placeholder(n)
	})
}

// Placeholders counts the bind parameters of a ? style statement.
func Placeholders(sql string) int {
	return countPlaceholders(sql)
}
