package frames

import "time"

// Store values arrive as whatever the backend driver produced. These
// coercions accept the types both backends are known to return; anything
// else decodes to the zero value.

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return ""
}

func asUint64(v any) uint64 {
	switch x := v.(type) {
	case uint64:
		return x
	case int64:
		if x < 0 {
			return 0
		}
		return uint64(x)
	case int:
		if x < 0 {
			return 0
		}
		return uint64(x)
	case uint32:
		return uint64(x)
	case float64:
		if x < 0 {
			return 0
		}
		return uint64(x)
	}
	return 0
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case int32:
		return int(x)
	case uint64:
		return int(x)
	case float64:
		return int(x)
	}
	return 0
}

func asFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return 0
}

func asBytes(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case string:
		return []byte(x)
	}
	return nil
}

func asTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case int64:
		// Unix milliseconds, the on-disk form used by duckstore.
		return time.UnixMilli(x).UTC()
	}
	return time.Time{}
}
