package auth

import (
	"context"

	"github.com/authchain/authchain/internal/auth/attrmap"
)

// Identity is the result of a successful RequireOne call.
// It is never modified after construction.
type Identity struct {
	identifier   string
	adapterName  string
	adapter      Adapter
	attributeMap *attrmap.AttributeMap
	raw          attrmap.Raw
}

// Identifier returns the principal identifier. It is empty only for
// anonymous adapters.
func (i *Identity) Identifier() string {
	return i.identifier
}

// Adapter returns the adapter that authenticated the request.
func (i *Identity) Adapter() Adapter {
	return i.adapter
}

// AdapterName returns the name the winning adapter was registered under.
func (i *Identity) AdapterName() string {
	return i.adapterName
}

// AttributeMap returns the attribute map of the winning adapter.
func (i *Identity) AttributeMap() *attrmap.AttributeMap {
	return i.attributeMap
}

// Attributes maps the raw attributes captured at authentication time.
// It is computed on every call.
func (i *Identity) Attributes() map[string]any {
	return i.attributeMap.Map(i.raw)
}

type identityKey struct{}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}

	return nil
}
