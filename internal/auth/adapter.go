package auth

import (
	"context"

	"github.com/authchain/authchain/internal/auth/attrmap"
)

// Adapter authenticates a request against one identity source.
//
// Implementations must be safe for concurrent use. Request specific state
// is returned to the caller, never kept on the adapter.
type Adapter interface {
	// Authenticate returns the raw provider attributes on success.
	// An error wrapping ErrDeclined means the adapter found no matching
	// credentials. Any other error is a failure of this adapter.
	Authenticate(ctx context.Context, req Request) (attrmap.Raw, error)

	// AttributeMap returns the declared attribute mapping.
	AttributeMap() attrmap.Mapping

	// IdentityAttribute returns the raw attribute key holding the principal
	// identifier. An empty key means the adapter is anonymous.
	IdentityAttribute() string
}

// NamedAdapter is an adapter with the name it was registered under.
type NamedAdapter struct {
	Name    string
	Adapter Adapter
}
