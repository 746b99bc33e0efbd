// Package nested reads values out of loosely typed JSON trees.
//
// Every accessor answers "absent" instead of failing when a step of the path
// is missing or has an unexpected type, so callers can map third-party
// payloads field by field without guarding each level.
package nested

import (
	"encoding/json"
	"strconv"
)

// Lookup walks path over v. String steps index into objects, int steps index
// into arrays. It reports false as soon as a step cannot be taken.
func Lookup(v any, path ...any) (any, bool) {
	cur := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			next, ok := obj[key]
			if !ok {
				return nil, false
			}
			cur = next
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			cur = arr[key]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Object returns the object at path.
func Object(v any, path ...any) (map[string]any, bool) {
	got, ok := Lookup(v, path...)
	if !ok {
		return nil, false
	}
	obj, ok := got.(map[string]any)
	return obj, ok
}

// String returns the string at path.
func String(v any, path ...any) (string, bool) {
	got, ok := Lookup(v, path...)
	if !ok {
		return "", false
	}
	s, ok := got.(string)
	return s, ok
}

// StringOr returns the string at path or "" when absent.
func StringOr(v any, path ...any) string {
	s, _ := String(v, path...)
	return s
}

// OptString returns a pointer to the string at path, or nil when absent.
func OptString(v any, path ...any) *string {
	s, ok := String(v, path...)
	if !ok {
		return nil
	}
	return &s
}

// Float returns the number at path. Both float64 and json.Number leaves are
// accepted.
func Float(v any, path ...any) (float64, bool) {
	got, ok := Lookup(v, path...)
	if !ok {
		return 0, false
	}
	return toFloat(got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Text renders the scalar at path as text: strings verbatim, numbers in
// their shortest form, booleans as true/false. Absent or composite values
// render as "".
func Text(v any, path ...any) string {
	got, ok := Lookup(v, path...)
	if !ok {
		return ""
	}
	switch s := got.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
