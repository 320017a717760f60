package attrmap

import (
	"strings"
)

// Kind is the declared type of a mapped attribute.
type Kind int

const (
	// KindUnknown is any type name that is not supported. Attributes declared
	// with it are dropped at map time.
	KindUnknown Kind = iota
	// KindArray keeps the raw value as a sequence.
	KindArray
	// KindString casts the first raw value to a string.
	KindString
	// KindInt casts the first raw value to an int.
	KindInt
	// KindBool casts the first raw value to a bool.
	KindBool
	// KindCustom emits the result of the registered custom coercion.
	KindCustom
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindArray:   "array",
	KindString:  "string",
	KindInt:     "int",
	KindBool:    "bool",
	KindCustom:  "custom",
}

// ParseKind returns the Kind for a type name. Names are case-insensitive.
// Unsupported names return KindUnknown.
func ParseKind(name string) Kind {
	name = strings.ToLower(strings.TrimSpace(name))

	for k, n := range kindNames {
		if k != KindUnknown && n == name {
			return k
		}
	}

	return KindUnknown
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}

	return kindNames[KindUnknown]
}

// UnmarshalText implements encoding.TextUnmarshaler. An unsupported name is
// not an error here: it is reported when the mapping is applied so one bad
// declaration never rejects the whole mapping.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
