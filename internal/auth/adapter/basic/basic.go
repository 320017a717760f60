// Package basic provides an adapter for HTTP Basic credentials.
//
// The adapter only parses the Authorization header. Verifying the
// username and password is delegated to a PlainAuthenticator, such as the
// directory package.
package basic

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/attrmap"
)

// Scheme is the HTTP authentication scheme handled by this adapter.
const Scheme = "Basic"

// PlainAuthenticator verifies a username and password.
//
// PlainAuth returns the raw attributes of the account on success and an error
// wrapping auth.ErrDeclined if the credentials do not match.
type PlainAuthenticator interface {
	PlainAuth(ctx context.Context, username, password string) (attrmap.Raw, error)
}

// Adapter authenticates requests carrying HTTP Basic credentials.
type Adapter struct {
	authenticator     PlainAuthenticator
	mapping           attrmap.Mapping
	identityAttribute string
}

var _ auth.Adapter = (*Adapter)(nil)

// New creates a basic adapter verifying credentials with authenticator.
func New(authenticator PlainAuthenticator, mapping attrmap.Mapping, identityAttribute string) (*Adapter, error) {
	if authenticator == nil {
		return nil, fmt.Errorf("%w: basic adapter needs an authenticator", auth.ErrConfiguration)
	}

	if identityAttribute == "" {
		return nil, fmt.Errorf("%w: identity_attribute is required", auth.ErrConfiguration)
	}

	return &Adapter{
		authenticator:     authenticator,
		mapping:           append(attrmap.Mapping(nil), mapping...),
		identityAttribute: identityAttribute,
	}, nil
}

// Authenticate implements auth.Adapter. Requests without well-formed Basic
// credentials are declined without calling the authenticator.
func (a *Adapter) Authenticate(ctx context.Context, req auth.Request) (attrmap.Raw, error) {
	username, password, err := ParseHeader(req.Header(auth.HeaderAuthorization))
	if err != nil {
		return nil, err
	}

	return a.authenticator.PlainAuth(ctx, username, password)
}

// AttributeMap implements auth.Adapter.
func (a *Adapter) AttributeMap() attrmap.Mapping {
	return append(attrmap.Mapping(nil), a.mapping...)
}

// IdentityAttribute implements auth.Adapter.
func (a *Adapter) IdentityAttribute() string {
	return a.identityAttribute
}

// Authenticator returns the underlying PlainAuthenticator.
func (a *Adapter) Authenticator() PlainAuthenticator {
	return a.authenticator
}

// ParseHeader extracts the credential pair of a Basic Authorization header.
// The scheme is matched case-insensitively. Every malformed header, as well as
// an empty username or password, yields an error wrapping auth.ErrDeclined.
func ParseHeader(header string) (username, password string, err error) {
	if header == "" {
		return "", "", fmt.Errorf("%w: no http authorization header found", auth.ErrDeclined)
	}

	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, Scheme) {
		return "", "", fmt.Errorf("%w: http authorization header contains no basic string", auth.ErrDeclined)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid basic authentication string", auth.ErrDeclined)
	}

	username, password, found = strings.Cut(string(decoded), ":")
	if !found {
		return "", "", fmt.Errorf("%w: basic authentication string has no password", auth.ErrDeclined)
	}

	if username == "" || password == "" {
		return "", "", fmt.Errorf("%w: empty username or password", auth.ErrDeclined)
	}

	return username, password, nil
}
