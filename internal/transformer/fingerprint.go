package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"time"
)

const (
	fieldSep = '\x1f'
	rowSep   = '\x1e'
)

// Hasher accumulates a SHA-256 over rows encoded canonically: fields joined by
// the ASCII unit separator, rows terminated by the record separator. Strings are
// length-prefixed, so separator bytes inside a value cannot shift a field
// boundary.
type Hasher struct {
	h   hash.Hash
	buf []byte
}

func NewHasher() *Hasher {
	return &Hasher{h: sha256.New(), buf: make([]byte, 0, 128)}
}

// WriteRow appends one row.
func (h *Hasher) WriteRow(values ...any) {
	b := h.buf[:0]
	for i, v := range values {
		if i > 0 {
			b = append(b, fieldSep)
		}
		b = AppendCanonical(b, v)
	}
	b = append(b, rowSep)
	h.h.Write(b)
	h.buf = b
}

// Sum returns the lowercase hex digest (64 chars).
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// AppendCanonical appends a stable encoding of v. nil is a single NUL byte so
// missing differs from empty string. Strings and byte slices are written as
// <len>:<bytes>. Floats use the shortest representation that round-trips, so
// distinct float64 values never collide.
func AppendCanonical(dst []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(dst, 0)
	case string:
		dst = strconv.AppendInt(dst, int64(len(t)), 10)
		dst = append(dst, ':')
		return append(dst, t...)
	case []byte:
		dst = strconv.AppendInt(dst, int64(len(t)), 10)
		dst = append(dst, ':')
		return append(dst, t...)
	case bool:
		return strconv.AppendBool(dst, t)
	case int:
		return strconv.AppendInt(dst, int64(t), 10)
	case int32:
		return strconv.AppendInt(dst, int64(t), 10)
	case int64:
		return strconv.AppendInt(dst, t, 10)
	case uint64:
		return strconv.AppendUint(dst, t, 10)
	case float32:
		return strconv.AppendFloat(dst, float64(t), 'g', -1, 32)
	case float64:
		return strconv.AppendFloat(dst, t, 'g', -1, 64)
	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		return tt.AppendFormat(dst, time.RFC3339Nano)
	default:
		return fmt.Append(dst, t)
	}
}
