package query

import "time"

// Int reads an integer-valued column from an aggregate row.
func Int(r Row, field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float reads a numeric column; ok is false when the value is NULL.
func Float(r Row, field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// String reads a text column, returning "" for NULL.
func String(r Row, field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case *string:
		if v != nil {
			return *v
		}
	}
	if v := normalize(r[field]); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Time reads a timestamp column.
func Time(r Row, field string) (time.Time, bool) {
	switch v := r[field].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	}
	return time.Time{}, false
}
