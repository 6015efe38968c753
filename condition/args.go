package condition

import (
	"strconv"
	"strings"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/format"
)

// ParseArgs converts command line arguments of the form name=value into
// runtime conditions. Values are parsed by the type of the condition:
// comma separated lists for in and notin, booleans for isnull and notnull.
func (c *Compiled) ParseArgs(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		name, text, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, dblayer.NewFormatError(c.Source, "condition %q is not name=value", arg)
		}
		e, found := c.Where.Lookup(name)
		if !found {
			e, found = c.Having.Lookup(name)
		}
		if !found {
			return nil, &dblayer.UnknownConditionError{Source: c.Source, Name: name, Value: text}
		}
		v, err := parseValue(e, text)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func parseValue(e *Entry, text string) (any, error) {
	switch e.Suffix {
	case format.SuffixIsNull, format.SuffixNotNull:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, dblayer.NewFormatError(e.Name, "%q is not a boolean", text)
		}
		return b, nil
	case format.SuffixIn, format.SuffixNotIn:
		if text == "" {
			return []any{}, nil
		}
		parts := strings.Split(text, ",")
		values := make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := format.Parse(e.Type, strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	case format.SuffixLike, format.SuffixILike:
		return text, nil
	}
	return format.Parse(e.Type, text)
}
