package format

import (
	"database/sql/driver"
	"strconv"

	"github.com/google/uuid"

	"github.com/ridoystarlord/dblayer/schema"
)

// Decode converts a value read from the driver into the record value of
// column c: int64 for keys and integers, float64, bool, string for text,
// decimals and UUIDs, time.Time for dates. Drivers disagree on the Go
// types they return; []byte is decoded to text.
func Decode(c *schema.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if val, ok := v.(driver.Valuer); ok {
		if _, isUUID := v.(uuid.UUID); !isUUID {
			dv, err := val.Value()
			if err != nil {
				return nil, err
			}
			return Decode(c, dv)
		}
	}
	switch x := v.(type) {
	case []byte:
		switch c.Kind {
		case schema.KindText, schema.KindSearchDocument, schema.KindDecimal, schema.KindCustom:
			return string(x), nil
		case schema.KindUUID:
			return Bind(c, x)
		}
		return Parse(c, string(x))
	case [16]byte:
		if c.Kind == schema.KindUUID {
			return uuid.UUID(x).String(), nil
		}
	case uuid.UUID:
		return x.String(), nil
	}
	switch c.Kind {
	case schema.KindBoolean:
		if n, ok := toInt64(v); ok {
			return n != 0, nil
		}
	case schema.KindFloat:
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	case schema.KindDecimal:
		switch x := v.(type) {
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		}
	}
	return Bind(c, v)
}
