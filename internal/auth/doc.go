// Package auth provides the authentication core of the application.
//
// A Service holds an ordered registry of adapters, each of which knows how to
// authenticate a request against one identity source:
//   - none: always matches, anonymous identity (register it last)
//   - basic/directory: HTTP Basic credentials verified by an LDAP bind
//   - oidc: bearer tokens verified against an OpenID Connect provider
//
// # Fallthrough policy
//
// RequireOne tries the adapters in registration order. An adapter either
// matches (returns raw attributes), declines (error wrapping ErrDeclined) or
// fails (any other error, or a panic). Declines and failures are logged and
// the next adapter is tried. The first match is final: its raw attributes must
// contain the adapter's identity attribute, otherwise RequireOne stops with
// ErrIdentityAttributeMissing instead of falling through. When nothing
// matches the caller gets ErrNotAuthenticated and nothing else; the reason
// each adapter declined is only visible in the logs.
//
// # Identity
//
// The resulting Identity carries the identifier, the winning adapter and an
// attrmap.AttributeMap built from the adapter's mapping declaration.
// Attributes() applies the map to the raw response captured during
// authentication.
//
// Example usage:
//
//	svc := auth.NewService()
//	_ = svc.InjectAdapter(oidcAdapter, "oidc")
//	_ = svc.InjectAdapter(directoryAdapter, "ldap")
//	_ = svc.InjectAdapter(none.New(nil), "anonymous")
//
//	identity, err := svc.RequireOne(ctx, auth.FromHTTP(r))
//	if err != nil {
//	    // 401
//	}
//
//	attrs := identity.Attributes()
package auth
