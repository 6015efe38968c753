package format

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ridoystarlord/dblayer"
	"github.com/ridoystarlord/dblayer/schema"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func columnName(c *schema.Column) string {
	if t := c.Table(); t != nil {
		return t.Name + "." + c.Name
	}
	return c.Name
}

func mismatch(c *schema.Column, v any) error {
	return dblayer.NewFormatError(columnName(c), "cannot bind %T to a %s column", v, c.Kind)
}

// Bind checks v against the column kind and converts it to the value handed
// to the driver. nil is always accepted; NOT NULL is the server's business.
// Pointers are dereferenced and a nil pointer binds as NULL.
func Bind(c *schema.Column, v any) (any, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		v = rv.Elem().Interface()
	}
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case schema.KindPrimaryKey, schema.KindForeignKey, schema.KindInteger:
		n, ok := toInt64(v)
		if !ok {
			return nil, mismatch(c, v)
		}
		return n, nil
	case schema.KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, mismatch(c, v)
		}
		return f, nil
	case schema.KindDecimal:
		if s, ok := v.(string); ok {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return nil, dblayer.NewFormatError(columnName(c), "%q is not a number", s)
			}
			return strings.TrimSpace(s), nil
		}
		if n, ok := v.(json.Number); ok {
			return n.String(), nil
		}
		if n, ok := toInt64(v); ok {
			return n, nil
		}
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
		return nil, mismatch(c, v)
	case schema.KindText, schema.KindSearchDocument:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
		return nil, mismatch(c, v)
	case schema.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(c, v)
		}
		return b, nil
	case schema.KindDate, schema.KindDatetime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := parseTime(x)
			if err != nil {
				return nil, dblayer.NewFormatError(columnName(c), "%q is not a date or time", x)
			}
			return t, nil
		}
		return nil, mismatch(c, v)
	case schema.KindUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x.String(), nil
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, dblayer.NewFormatError(columnName(c), "%q is not a UUID", x)
			}
			return id.String(), nil
		case []byte:
			id, err := uuid.ParseBytes(x)
			if err != nil {
				return nil, dblayer.NewFormatError(columnName(c), "%q is not a UUID", x)
			}
			return id.String(), nil
		}
		return nil, mismatch(c, v)
	}
	return v, nil
}

// Parse converts command line text into a value Bind accepts. The literal
// text null (any case) is NULL.
func Parse(c *schema.Column, text string) (any, error) {
	if strings.EqualFold(text, "null") {
		return nil, nil
	}
	switch c.Kind {
	case schema.KindPrimaryKey, schema.KindForeignKey, schema.KindInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, dblayer.NewFormatError(columnName(c), "%q is not an integer", text)
		}
		return n, nil
	case schema.KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, dblayer.NewFormatError(columnName(c), "%q is not a number", text)
		}
		return f, nil
	case schema.KindBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, dblayer.NewFormatError(columnName(c), "%q is not a boolean", text)
		}
		return b, nil
	}
	return Bind(c, text)
}

func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case float64:
		// JSON numbers decode to float64.
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), true
		}
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
