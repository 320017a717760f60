// Package none provides an adapter that authenticates every request as an
// anonymous identity. Used when authentication is disabled or as the final
// catch-all of a chain.
package none

import (
	"context"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/attrmap"
)

// Adapter always matches with an empty attribute bag.
type Adapter struct {
	mapping attrmap.Mapping
}

var _ auth.Adapter = (*Adapter)(nil)

// New creates a none adapter. The mapping is kept for completeness only,
// the adapter never returns attributes.
func New(mapping attrmap.Mapping) *Adapter {
	return &Adapter{mapping: append(attrmap.Mapping(nil), mapping...)}
}

// Authenticate implements auth.Adapter.
func (a *Adapter) Authenticate(_ context.Context, _ auth.Request) (attrmap.Raw, error) {
	return attrmap.Raw{}, nil
}

// AttributeMap implements auth.Adapter.
func (a *Adapter) AttributeMap() attrmap.Mapping {
	return append(attrmap.Mapping(nil), a.mapping...)
}

// IdentityAttribute implements auth.Adapter. The none adapter is anonymous.
func (a *Adapter) IdentityAttribute() string {
	return ""
}
