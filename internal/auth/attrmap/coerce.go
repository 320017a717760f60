package attrmap

import (
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// countKey is the metadata key some directory clients add to multi valued results.
const countKey = "count"

// errUnsupportedKind is returned by coerce for kinds without a built-in cast.
var errUnsupportedKind = errors.New("unsupported attribute kind")

func coerce(kind Kind, value any) (any, error) {
	switch kind {
	case KindArray:
		return toSlice(value), nil
	case KindString:
		return cast.ToStringE(value)
	case KindInt:
		return toInt(value)
	case KindBool:
		return cast.ToBoolE(value)
	default:
		return nil, errUnsupportedKind
	}
}

// toInt reads decimal text as base 10; leading zeros are no octal prefix.
func toInt(value any) (int, error) {
	switch v := value.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case []byte:
		return strconv.Atoi(strings.TrimSpace(string(v)))
	}

	return cast.ToIntE(value)
}

// First unwraps a multi valued raw value. Single values are returned as is.
// The second result is false for an empty multi valued value.
func First(value any) (any, bool) {
	if !isMulti(value) {
		return value, true
	}

	values := toSlice(value)
	if len(values) == 0 {
		return nil, false
	}

	return values[0], true
}

func isMulti(value any) bool {
	if value == nil {
		return false
	}

	switch value.(type) {
	case []byte:
		return false
	case map[string]any, map[string]string:
		return true
	}

	k := reflect.TypeOf(value).Kind()

	return k == reflect.Slice || k == reflect.Array
}

// toSlice returns value as a sequence. Map shaped values lose their count key
// and are ordered by key, numerically where possible.
func toSlice(value any) []any {
	switch v := value.(type) {
	case nil:
		return []any{}
	case []byte:
		return []any{v}
	case []any:
		return append([]any(nil), v...)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}

		return out
	case map[string]any:
		return mapValues(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}

		return mapValues(m)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out
}

func mapValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))

	for k := range m {
		if k == countKey {
			continue
		}

		keys = append(keys, k)
	}

	// numeric keys first in numeric order, then the rest lexically
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])

		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}

			return keys[i] < keys[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}

	return out
}
