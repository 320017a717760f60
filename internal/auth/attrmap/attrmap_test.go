package attrmap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want Kind
	}{
		{"array", "array", KindArray},
		{"string upper case", "STRING", KindString},
		{"int with spaces", " int ", KindInt},
		{"bool", "bool", KindBool},
		{"custom", "custom", KindCustom},
		{"unknown", "float", KindUnknown},
		{"empty", "", KindUnknown},
		{"unknown literal", "unknown", KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseKind(tc.in))
		})
	}
}

func TestKindTextRoundTrip(t *testing.T) {
	var k Kind

	require.NoError(t, k.UnmarshalText([]byte("bool")))
	assert.Equal(t, KindBool, k)

	text, err := k.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "bool", string(text))

	require.NoError(t, k.UnmarshalText([]byte("nope")))
	assert.Equal(t, KindUnknown, k)
}

func TestMap(t *testing.T) {
	raw := Raw{
		"uid":        []string{"alice"},
		"mail":       "alice@example.org",
		"uidNumber":  []string{"1001"},
		"enabled":    "true",
		"memberOf":   []string{"cn=admins", "cn=users"},
		"ldapGroups": map[string]any{"count": 2, "0": "a", "1": "b"},
		"age":        float64(42),
		"scopes":     []any{"read", "write"},
		"single":     "x",
		"empty":      []string{},
		"bad":        "not-a-number",
		"employeeNo": []string{"0123"},
		"room":       []string{"08"},
		"padded":     " 7 ",
		"mixedKeys":  map[string]any{"count": 4, "b": "x", "10": "ten", "2": "two", "a": "y"},
	}

	testCases := []struct {
		name     string
		entry    Entry
		want     any
		wantSkip bool
	}{
		{"unwrap string", Entry{Name: "username", Attr: "uid", Type: KindString}, "alice", false},
		{"plain string", Entry{Name: "email", Attr: "mail", Type: KindString}, "alice@example.org", false},
		{"unwrap int", Entry{Name: "uid_number", Attr: "uidNumber", Type: KindInt}, 1001, false},
		{"bool from string", Entry{Name: "enabled", Attr: "enabled", Type: KindBool}, true, false},
		{"json number to int", Entry{Name: "age", Attr: "age", Type: KindInt}, 42, false},
		{"leading zero is decimal", Entry{Name: "employee", Attr: "employeeNo", Type: KindInt}, 123, false},
		{"leading zero with non octal digit", Entry{Name: "room", Attr: "room", Type: KindInt}, 8, false},
		{"int from padded string", Entry{Name: "padded", Attr: "padded", Type: KindInt}, 7, false},
		{"array of strings", Entry{Name: "groups", Attr: "memberOf", Type: KindArray}, []any{"cn=admins", "cn=users"}, false},
		{"array strips count", Entry{Name: "groups", Attr: "ldapGroups", Type: KindArray}, []any{"a", "b"}, false},
		{"array orders numeric keys first", Entry{Name: "mixed", Attr: "mixedKeys", Type: KindArray}, []any{"two", "ten", "y", "x"}, false},
		{"array keeps any slice", Entry{Name: "scopes", Attr: "scopes", Type: KindArray}, []any{"read", "write"}, false},
		{"array wraps scalar", Entry{Name: "single", Attr: "single", Type: KindArray}, []any{"x"}, false},
		{"first of array as string", Entry{Name: "group", Attr: "memberOf", Type: KindString}, "cn=admins", false},
		{"absent key is skipped", Entry{Name: "phone", Attr: "telephoneNumber", Type: KindString}, nil, true},
		{"empty multi value is skipped", Entry{Name: "empty", Attr: "empty", Type: KindString}, nil, true},
		{"uncastable int is skipped", Entry{Name: "bad", Attr: "bad", Type: KindInt}, nil, true},
		{"unknown kind is skipped", Entry{Name: "mail", Attr: "mail", Type: KindUnknown}, nil, true},
		{"custom kind without coercion is skipped", Entry{Name: "mail", Attr: "mail", Type: KindCustom}, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := New(Mapping{tc.entry}).Map(raw)

			v, ok := got[tc.entry.Name]
			if tc.wantSkip {
				assert.False(t, ok, "attribute %q must be omitted", tc.entry.Name)
				assert.Empty(t, got)

				return
			}

			require.True(t, ok, "attribute %q must be present", tc.entry.Name)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestMapIsPureAndIdempotent(t *testing.T) {
	mapping := Mapping{
		{Name: "username", Attr: "uid", Type: KindString},
		{Name: "groups", Attr: "memberOf", Type: KindArray},
		{Name: "missing", Attr: "nope", Type: KindString},
	}
	raw := Raw{
		"uid":      []string{"alice"},
		"memberOf": []string{"cn=admins"},
	}

	m := New(mapping)

	first := m.Map(raw)
	second := m.Map(raw)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"username": "alice", "groups": []any{"cn=admins"}}, first)
	assert.Equal(t, Raw{"uid": []string{"alice"}, "memberOf": []string{"cn=admins"}}, raw, "input must not be mutated")

	// mutating the output must not leak into the next call
	first["groups"].([]any)[0] = "changed"
	assert.Equal(t, []any{"cn=admins"}, m.Map(raw)["groups"])
}

func TestMapBadKindDoesNotAbortMapping(t *testing.T) {
	var bad Kind

	require.NoError(t, bad.UnmarshalText([]byte("float")))

	m := New(Mapping{
		{Name: "a", Attr: "a", Type: bad},
		{Name: "b", Attr: "b", Type: KindString},
	})

	assert.Equal(t, map[string]any{"b": "2"}, m.Map(Raw{"a": "1", "b": 2}))
}

func TestMapWithCoercion(t *testing.T) {
	upper := func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("not a string")
		}

		return strings.ToUpper(s), nil
	}

	raw := Raw{"uid": []string{"alice"}, "n": 7}

	t.Run("custom kind emits coercion result", func(t *testing.T) {
		m := New(Mapping{{Name: "user", Attr: "uid", Type: KindCustom}}, WithCoercion(KindCustom, upper))
		assert.Equal(t, map[string]any{"user": "ALICE"}, m.Map(raw))
	})

	t.Run("builtin kind runs coercion before cast", func(t *testing.T) {
		double := func(v any) (any, error) { return v.(int) * 2, nil }
		m := New(Mapping{{Name: "n", Attr: "n", Type: KindString}}, WithCoercion(KindString, double))
		assert.Equal(t, map[string]any{"n": "14"}, m.Map(raw))
	})

	t.Run("failing coercion drops attribute", func(t *testing.T) {
		m := New(Mapping{{Name: "n", Attr: "n", Type: KindCustom}}, WithCoercion(KindCustom, upper))
		assert.Empty(t, m.Map(raw))
	})

	t.Run("nil coercion is ignored", func(t *testing.T) {
		m := New(Mapping{{Name: "user", Attr: "uid", Type: KindString}}, WithCoercion(KindString, nil))
		assert.Equal(t, map[string]any{"user": "alice"}, m.Map(raw))
	})
}

func TestMappingIsCopied(t *testing.T) {
	mapping := Mapping{{Name: "a", Attr: "a", Type: KindString}}
	m := New(mapping)

	mapping[0].Name = "changed"
	assert.Equal(t, "a", m.Mapping()[0].Name)

	out := m.Mapping()
	out[0].Name = "changed"
	assert.Equal(t, "a", m.Mapping()[0].Name)
}
