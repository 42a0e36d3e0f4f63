package duckstore

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Record values are dynamically typed while DuckDB columns are not, so
// every value travels as a self-describing string: a one-byte type
// prefix, a colon, then the payload. Equal values encode identically,
// which is what makes key lookups and delete-by-value plain SQL
// equality. Nil maps to SQL NULL.
//
//	s: string     u: uint64      i: int64
//	f: float64    b: bytes(b64)  t: time(ms)  B: bool

func encodeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return "s:" + x
	case uint64:
		return "u:" + strconv.FormatUint(x, 10)
	case int:
		return "i:" + strconv.FormatInt(int64(x), 10)
	case int64:
		return "i:" + strconv.FormatInt(x, 10)
	case uint32:
		return "u:" + strconv.FormatUint(uint64(x), 10)
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return "b:" + base64.StdEncoding.EncodeToString(x)
	case time.Time:
		return "t:" + strconv.FormatInt(x.UnixMilli(), 10)
	case bool:
		if x {
			return "B:1"
		}
		return "B:0"
	default:
		return fmt.Sprintf("s:%v", x)
	}
}

func decodeValue(s *string) any {
	if s == nil {
		return nil
	}
	v := *s
	if len(v) < 2 || v[1] != ':' {
		return v
	}
	payload := v[2:]
	switch v[0] {
	case 's':
		return payload
	case 'u':
		n, err := strconv.ParseUint(payload, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case 'i':
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case 'f':
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil
		}
		return f
	case 'b':
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil
		}
		return b
	case 't':
		ms, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil
		}
		return time.UnixMilli(ms).UTC()
	case 'B':
		return payload == "1"
	default:
		return v
	}
}
