// Package jsonpath resolves paths into decoded, schema-variable JSON values.
//
// Upstream payloads change shape without notice: keys disappear, objects turn
// into arrays, lists come back shorter than expected. Every field the rest of
// the system reads out of a payload goes through Lookup, which turns all of
// those cases into a default value instead of a panic.
package jsonpath

import (
	"fmt"
	"strconv"
)

// Step is one path element: a string map key or an int slice index.
type Step any

// Path is an ordered sequence of steps from the root of a decoded value.
type Path []Step

// P is shorthand for building a Path in place.
func P(steps ...Step) Path { return Path(steps) }

// Lookup walks root along path. On any step where the current value is not
// indexable by that step (missing key, wrong container kind, index out of
// range) it returns def. It never panics.
func Lookup(root any, path Path, def any) any {
	cur := root
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return def
			}
			cur, ok = m[key]
			if !ok {
				return def
			}
		case int:
			s, ok := cur.([]any)
			if !ok || key < 0 || key >= len(s) {
				return def
			}
			cur = s[key]
		default:
			return def
		}
	}
	if cur == nil {
		return def
	}
	return cur
}

// String resolves path and renders the result as a string, preserving the
// upstream formatting. Numbers decoded by encoding/json arrive as float64;
// integral values are rendered without a fractional part so that counts like
// totalHouseholdCount come out as "500", not "500.000000".
func String(root any, path Path, def string) string {
	v := Lookup(root, path, nil)
	if v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Slice resolves path to a []any, or an empty slice when the path does not
// resolve to a list. An empty list is a normal outcome, never an error.
func Slice(root any, path Path) []any {
	v := Lookup(root, path, nil)
	s, ok := v.([]any)
	if !ok {
		return nil
	}
	return s
}
