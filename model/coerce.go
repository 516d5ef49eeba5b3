package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a DATE value.
const DateLayout = "2006-01-02 15:04:05.000"

// dateLayouts are tried in order when a DATE arrives as text.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseDate parses text in any of the accepted date layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrUnsupportedMapping, s)
}

// Coerce converts a native value into the canonical Go type for typ:
// string, time.Time, int64 or float64. nil stays nil.
func Coerce(typ ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch typ {
	case String:
		return coerceString(v)
	case Date:
		return coerceDate(v)
	case IntegerNumber:
		return coerceInteger(v)
	case DecimalNumber:
		return coerceDecimal(v)
	}
	return nil, fmt.Errorf("%w: column type %s", ErrUnsupportedMapping, typ)
}

func coerceString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case time.Time:
		return x.Format(DateLayout), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), nil
	case bool:
		return nil, fmt.Errorf("%w: boolean value %v", ErrUnsupportedMapping, x)
	}
	return nil, fmt.Errorf("%w: %T as STRING", ErrUnsupportedMapping, v)
}

func coerceDate(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		return ParseDate(x)
	}
	return nil, fmt.Errorf("%w: %T as DATE", ErrUnsupportedMapping, v)
}

func coerceInteger(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows INTEGER_NUMBER", ErrUnsupportedMapping, x)
		}
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows INTEGER_NUMBER", ErrUnsupportedMapping, x)
		}
		return int64(x), nil
	case float32:
		return integral(float64(x))
	case float64:
		return integral(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return integral(f)
		}
		return nil, fmt.Errorf("%w: %q is not an integer", ErrUnsupportedMapping, x)
	}
	return nil, fmt.Errorf("%w: %T as INTEGER_NUMBER", ErrUnsupportedMapping, v)
}

// integral converts a whole float inside the int64 range. 2^63 itself is out of range.
func integral(x float64) (any, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
		return nil, fmt.Errorf("%w: %v is not integral", ErrUnsupportedMapping, x)
	}
	if x < math.MinInt64 || x >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: %v overflows INTEGER_NUMBER", ErrUnsupportedMapping, x)
	}
	return int64(x), nil
}

func coerceDecimal(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a decimal", ErrUnsupportedMapping, x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: %T as DECIMAL_NUMBER", ErrUnsupportedMapping, v)
}
