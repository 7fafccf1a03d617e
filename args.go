package ftsearch

import (
	"fmt"
	"math"
	"strconv"
)

// formatNumber renders a float the way the server parses numeric arguments.
func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatValue renders a document field value as a command argument.
func formatValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int8:
		return strconv.FormatInt(int64(t), 10), nil
	case int16:
		return strconv.FormatInt(int64(t), 10), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float32:
		return formatNumber(float64(t)), nil
	case float64:
		return formatNumber(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case fmt.Stringer:
		return t.String(), nil
	case nil:
		return "", fmt.Errorf("nil value")
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
