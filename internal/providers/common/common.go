package common

import (
	"strconv"
	"strings"
)

// FormatNumber renders n with comma thousands separators.
func FormatNumber(n int64) string {
	return formatWithCommas(strconv.FormatInt(n, 10))
}

func FormatDollars(n int64) string {
	if n < 0 {
		return "-$" + FormatNumber(-n)
	}
	return "$" + FormatNumber(n)
}

func formatWithCommas(input string) string {
	neg := strings.HasPrefix(input, "-")
	if neg {
		input = strings.TrimPrefix(input, "-")
	}
	if len(input) <= 3 {
		if neg {
			return "-" + input
		}
		return input
	}

	n := len(input)
	first := n % 3
	if first == 0 {
		first = 3
	}

	parts := []string{input[:first]}
	for i := first; i < n; i += 3 {
		parts = append(parts, input[i:i+3])
	}

	result := strings.Join(parts, ",")
	if neg {
		return "-" + result
	}
	return result
}

func ToInt64(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case jsonNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return 0
}

type jsonNumber interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

func ToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case jsonNumber:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func ToBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case jsonNumber:
		return v.String() != "0"
	default:
		return false
	}
}
