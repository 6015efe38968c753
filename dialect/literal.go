package dialect

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.999999"
)

func quoteIdent(name string, quote byte) string {
	q := string(quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func quoteString(s string, backslash bool) string {
	if backslash {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteLiteral renders the literal kinds every backend spells the same way.
// backslash doubles backslashes inside strings for MySQL.
func quoteLiteral(v any, backslash bool) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return quoteFloat(float64(x))
	case float64:
		return quoteFloat(x)
	case string:
		return quoteString(x, backslash), nil
	case []byte:
		return quoteString(string(x), backslash), nil
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return "'" + x.Format(dateLayout) + "'", nil
		}
		return "'" + x.Format(datetimeLayout) + "'", nil
	case uuid.UUID:
		return "'" + x.String() + "'", nil
	case fmt.Stringer:
		return quoteString(x.String(), backslash), nil
	}
	return "", fmt.Errorf("cannot render %T as an SQL literal", v)
}

func quoteFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("cannot render %v as an SQL literal", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
