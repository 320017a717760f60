// Package attrmap turns the raw attribute bag returned by an identity provider
// into canonical, typed attributes.
//
// A Mapping is an ordered list of declarations. Each declaration names the
// canonical attribute, the provider key it is read from and the Kind it is
// coerced to:
//
//	mapping := attrmap.Mapping{
//	    {Name: "mail", Attr: "email", Type: attrmap.KindString},
//	    {Name: "groups", Attr: "memberOf", Type: attrmap.KindArray},
//	}
//
//	attrs := attrmap.New(mapping).Map(raw)
//
// Map is pure. Missing provider keys are skipped, never defaulted.
package attrmap

import (
	"github.com/rs/zerolog/log"
)

// Raw is a provider specific attribute bag. Values may be single valued
// (string, number, bool) or multi valued ([]string, []any).
type Raw map[string]any

// Entry declares one canonical attribute.
type Entry struct {
	// Name is the canonical attribute name.
	Name string `mapstructure:"name" validate:"required"`
	// Attr is the provider key the value is read from.
	Attr string `mapstructure:"attr" validate:"required"`
	// Type is the declared kind the value is coerced to.
	Type Kind `mapstructure:"type"`
}

// Mapping is an ordered attribute mapping declaration.
type Mapping []Entry

// Coercion converts a raw value. It is registered per Kind.
type Coercion func(value any) (any, error)

// AttributeMap applies a Mapping to raw attribute bags.
// It is immutable after New and safe for concurrent use.
type AttributeMap struct {
	mapping   Mapping
	coercions map[Kind]Coercion
}

// Option configures an AttributeMap.
type Option func(*AttributeMap)

// WithCoercion registers a custom coercion for kind. For the built-in kinds it
// runs before the built-in cast; for KindCustom its result is emitted as is.
func WithCoercion(kind Kind, fn Coercion) Option {
	return func(m *AttributeMap) {
		if fn != nil {
			m.coercions[kind] = fn
		}
	}
}

// New creates an AttributeMap for mapping.
func New(mapping Mapping, opts ...Option) *AttributeMap {
	m := &AttributeMap{
		mapping:   append(Mapping(nil), mapping...),
		coercions: make(map[Kind]Coercion),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Mapping returns a copy of the mapping declaration.
func (m *AttributeMap) Mapping() Mapping {
	return append(Mapping(nil), m.mapping...)
}

// Map converts raw into canonical attributes, in mapping order.
func (m *AttributeMap) Map(raw Raw) map[string]any {
	attrs := make(map[string]any, len(m.mapping))

	for _, e := range m.mapping {
		value, ok := raw[e.Attr]
		if !ok {
			log.Warn().
				Str("attribute", e.Name).
				Str("source", e.Attr).
				Msg("auth attribute was not found in authentication adapter response")

			continue
		}

		if v, ok := m.apply(e, value); ok {
			attrs[e.Name] = v
		}
	}

	return attrs
}

func (m *AttributeMap) apply(e Entry, value any) (any, bool) {
	logger := log.With().
		Str("attribute", e.Name).
		Str("source", e.Attr).
		Str("type", e.Type.String()).
		Logger()

	if e.Type == KindUnknown {
		logger.Error().Msg("unknown attribute type; use one of [array,string,int,bool,custom]")

		return nil, false
	}

	store := value

	if e.Type != KindArray {
		first, ok := First(value)
		if !ok {
			logger.Warn().Msg("multi valued attribute is empty")

			return nil, false
		}

		store = first
	}

	fn, hasCustom := m.coercions[e.Type]

	switch {
	case hasCustom:
		v, err := fn(store)
		if err != nil {
			logger.Warn().Err(err).Msg("custom attribute coercion failed")

			return nil, false
		}

		store = v
	case e.Type == KindCustom:
		logger.Error().Msg("no custom coercion registered")

		return nil, false
	}

	if e.Type == KindCustom {
		return store, true
	}

	v, err := coerce(e.Type, store)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to coerce attribute value")

		return nil, false
	}

	logger.Debug().Msg("found attribute mapping")

	return v, true
}
