package config

import (
	"strconv"
	"unicode/utf8"
)

// Options is a loosely typed option bag handed to parsers. Values usually come
// from decoded config (so numbers may be float64 and maps may be map[string]any);
// the accessors below normalize those shapes and fall back to a default.
type Options map[string]any

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

func (o Options) Bool(key string, def bool) bool {
	switch v := o.Any(key).(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

func (o Options) Int(key string, def int) int {
	switch v := o.Any(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// Rune returns the first rune of a string option (e.g. a CSV delimiter).
func (o Options) Rune(key string, def rune) rune {
	switch v := o.Any(key).(type) {
	case rune:
		return v
	case string:
		if v == "" {
			return def
		}
		if v == `\t` {
			return '\t'
		}
		r, _ := utf8.DecodeRuneInString(v)
		if r == utf8.RuneError {
			return def
		}
		return r
	default:
		return def
	}
}

func (o Options) String(key, def string) string {
	if v, ok := o.Any(key).(string); ok && v != "" {
		return v
	}
	return def
}

// StringMap accepts map[string]string or map[string]any with string values.
// Non-string values are skipped.
func (o Options) StringMap(key string) map[string]string {
	switch v := o.Any(key).(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, x := range v {
			if s, ok := x.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// StringSlice accepts []string or []any with string elements.
func (o Options) StringSlice(key string) []string {
	switch v := o.Any(key).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
