package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coerce converts a loosely typed boundary value into a string.
// Lists contribute their first element, so ["BPM"] becomes "BPM".
// Objects carry no scalar and become "".
func Coerce(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case []any:
		if len(value) == 0 {
			return ""
		}
		return Coerce(value[0])
	case []string:
		if len(value) == 0 {
			return ""
		}
		return strings.TrimSpace(value[0])
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	case map[string]any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

// CoerceInt converts a boundary value into an int. Numeric strings are
// accepted. ok is false when the value is absent or not a whole number.
func CoerceInt(v any) (n int, ok bool) {
	switch value := v.(type) {
	case nil:
		return 0, false
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		if value != float64(int(value)) {
			return 0, false
		}
		return int(value), true
	case json.Number:
		i, err := value.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case []any:
		if len(value) == 0 {
			return 0, false
		}
		return CoerceInt(value[0])
	default:
		s := Coerce(value)
		if s == "" {
			return 0, false
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return i, true
	}
}
