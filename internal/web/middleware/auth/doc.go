// Package auth provides the authentication middleware for the web service.
//
// Every request is passed to the auth service, which tries the configured
// adapters in order. The resulting identity is stored in fiber.Locals under
// the configured attribute (default "identity") and in the request's user
// context, where auth.IdentityFromContext finds it.
//
// Requests no adapter accepts are answered with a uniform 401 JSON body. The
// reason is only logged, so clients can not tell which adapters exist or
// why each declined.
//
// Usage:
//
//	app.Use(authmiddleware.New(authmiddleware.Config{Service: svc}))
package auth
