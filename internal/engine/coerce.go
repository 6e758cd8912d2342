// internal/engine/coerce.go
package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

/*
 * Loose coercion helpers for operator evaluation.
 *
 * Rule documents and event payloads arrive as untyped JSON, so every
 * comparison has to tolerate float64/int/json.Number mixing, numeric strings,
 * and date strings. All helpers degrade instead of failing: a value that
 * cannot be coerced reports !ok and the calling operator resolves to false.
 *
 * Key functions:
 *   - asFloat: numeric coercion (numbers and numeric strings)
 *   - asTime: date coercion (RFC3339 and common fallbacks, epoch numbers)
 *   - stringify: display form used by regex and interpolation
 *   - looseEqual: deep equality with numeric tolerance and case folding
 *   - truthy: JS-style boolean coercion (empty containers are truthy)
 */

// asFloat converts value to float64 for numeric comparison.
// Accepts Go numbers, json.Number and numeric strings; whitespace-only
// strings and booleans are not numbers.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// dateLayouts tried in order by asTime for string operands.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTime converts value to a time.Time for date ordering.
// Numbers are Unix epoch seconds (milliseconds when the magnitude says so).
func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		f, ok := asFloat(value)
		if !ok {
			return time.Time{}, false
		}
		// Heuristic: epoch values past the year 33658 in seconds are
		// really milliseconds.
		if f > 1e12 {
			return time.UnixMilli(int64(f)), true
		}
		return time.Unix(int64(f), 0), true
	}
}

// stringify renders a value the way it should appear inside a string
// template: scalars directly, composites as JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// asList reports value as a []any when it is any slice kind.
func asList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// looseEqual compares two values structurally. Numbers compare by value
// across representations, strings fold case when fold is set, maps and
// slices compare element-wise with the same rules.
func looseEqual(a, b any, fold bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := asStrictFloat(a); ok {
		if fb, ok := asStrictFloat(b); ok {
			return fa == fb
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			if fold {
				return strings.EqualFold(sa, sb)
			}
			return sa == sb
		}
	}
	if la, ok := asList(a); ok {
		lb, ok := asList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !looseEqual(la[i], lb[i], fold) {
				return false
			}
		}
		return true
	}
	if ma, ok := a.(map[string]any); ok {
		mb, ok := b.(map[string]any)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !looseEqual(va, vb, fold) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// asStrictFloat is asFloat without the string branch; "1" must not
// loose-equal 1, only numeric representations do.
func asStrictFloat(value any) (float64, bool) {
	if _, isString := value.(string); isString {
		return 0, false
	}
	return asFloat(value)
}

// present reports whether a resolved value counts as existing: defined,
// non-nil and not the empty string.
func present(value any) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return s != ""
	}
	return true
}

// truthy applies JS-style boolean coercion: nil and empty strings are
// false, zero and NaN numbers are false, everything else (including empty
// lists and documents) is true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		if f, ok := asStrictFloat(value); ok {
			return f != 0 && f == f
		}
		return true
	}
}
