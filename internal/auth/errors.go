package auth

import "errors"

var (
	// ErrConfiguration is returned for unknown or invalid adapter options.
	ErrConfiguration = errors.New("auth: invalid configuration")

	// ErrAdapterAlreadyRegistered is returned when an adapter name is taken.
	ErrAdapterAlreadyRegistered = errors.New("auth: adapter is already registered")

	// ErrAdapterNotFound is returned when no adapter is registered under a name.
	ErrAdapterNotFound = errors.New("auth: adapter is not registered")

	// ErrDeclined is returned by an adapter that found no matching credentials.
	// It is not a failure of the adapter; the next adapter is tried.
	ErrDeclined = errors.New("auth: adapter declined")

	// ErrUpstream is returned when the directory or identity provider could not
	// be reached or answered with a protocol error.
	ErrUpstream = errors.New("auth: upstream error")

	// ErrInvalidToken is returned when the identity provider rejected a bearer token.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrIdentityAttributeMissing is returned when the declared identity
	// attribute is absent from a provider response.
	ErrIdentityAttributeMissing = errors.New("auth: identity attribute missing")

	// ErrNotAuthenticated is returned when no adapter authenticated the request.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
)
