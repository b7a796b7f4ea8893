// Package normalize canonicalizes raw form input before any stage sees it.
// Normalization is pure and idempotent: applying it twice yields the same form.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// Form is the raw key/value input accompanying a chat message. Transports
// build it from form fields or a JSON body; stages only ever see the
// normalized copy.
type Form map[string]any

// panAliases lists the accepted spellings of the PAN-tail field, in priority
// order. The first key carrying a non-empty value wins.
var panAliases = []string{"pan_last4", "pan_tail", "pan"}

// numericKeys are coerced to int64 when possible. Malformed values are left
// untouched rather than failing the request; downstream defaults cover them.
var numericKeys = []string{"desired_amount", "tenure", "salary"}

// Apply returns a normalized copy of f. The input form is not mutated.
//
// PAN handling: the last 4 characters of the first present alias are written
// to both pan_last4 and pan_tail, so stages reading either key observe the
// same value. Inputs shorter than 4 characters pass through as-is; the
// orchestrator rejects them at capture time.
func Apply(f Form) Form {
	out := make(Form, len(f)+1)
	for k, v := range f {
		out[k] = v
	}

	tail := PANTail(out)
	out["pan_last4"] = tail
	out["pan_tail"] = tail

	for _, key := range numericKeys {
		v, ok := out[key]
		if !ok || v == nil {
			continue
		}
		if n, ok := toInt64(v); ok {
			out[key] = n
		}
	}
	return out
}

// PANTail derives the canonical PAN tail from whichever alias is present.
// Returns "" when no alias carries a value.
func PANTail(f Form) string {
	for _, key := range panAliases {
		s := String(f, key)
		if s == "" {
			continue
		}
		if len(s) > 4 {
			return s[len(s)-4:]
		}
		return s
	}
	return ""
}

// String reads key as a trimmed string, tolerating non-string values.
func String(f Form, key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatInt(int64(s), 10)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Int reads key as an int64, falling back to def when the value is absent or
// not coercible.
func Int(f Form, key string, def int64) int64 {
	v, ok := f[key]
	if !ok || v == nil {
		return def
	}
	if n, ok := toInt64(v); ok {
		return n
	}
	return def
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
