package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	core "github.com/authchain/authchain/internal/auth"
)

// DefaultAttribute is the fiber.Locals key the identity is stored under.
const DefaultAttribute = "identity"

// ErrorResponse is the body sent for unauthenticated requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Config configures the middleware.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	Next func(c *fiber.Ctx) bool

	// Service authenticates the requests. Required.
	Service *core.Service

	// Attribute is the fiber.Locals key of the identity.
	//
	// Optional. Default: "identity"
	Attribute string

	// Optional lets unauthenticated requests pass without identity.
	Optional bool

	// Timeout bounds the whole adapter chain of one request.
	//
	// Optional. Default: no bound besides the adapters' own timeouts
	Timeout time.Duration
}

// request is the core.Request view of a fiber context.
type request struct {
	c *fiber.Ctx
}

func (r request) Header(name string) string {
	return r.c.Get(name)
}

func (r request) Query(name string) string {
	return r.c.Query(name)
}

// Request returns the core.Request view of c.
func Request(c *fiber.Ctx) core.Request {
	return request{c: c}
}

// New creates the authentication middleware.
func New(cfg Config) fiber.Handler {
	if cfg.Service == nil {
		panic("auth middleware needs an auth service")
	}

	if cfg.Attribute == "" {
		cfg.Attribute = DefaultAttribute
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		ctx, cancel := requestContext(c, cfg.Timeout)
		identity, err := cfg.Service.RequireOne(ctx, Request(c))
		cancel()

		if err != nil {
			if cfg.Optional && errors.Is(err, core.ErrNotAuthenticated) {
				return c.Next()
			}

			log.Debug().Err(err).Str("path", c.Path()).Msg("request not authenticated")

			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "not authenticated"})
		}

		c.Locals(cfg.Attribute, identity)
		c.SetUserContext(core.WithIdentity(c.UserContext(), identity))

		return c.Next()
	}
}

// requestContext derives the authentication context from the user context.
// It is cancelled after timeout and when the server shuts down. fasthttp does
// not report client disconnects, so those are not observed.
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.UserContext())

	if timeout > 0 {
		var cancelTimeout context.CancelFunc

		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		parentCancel := cancel
		cancel = func() {
			cancelTimeout()
			parentCancel()
		}
	}

	stop := context.AfterFunc(c.Context(), cancel)

	return ctx, func() {
		stop()
		cancel()
	}
}

// Identity returns the identity stored by the middleware, or nil.
func Identity(c *fiber.Ctx, attribute ...string) *core.Identity {
	key := DefaultAttribute
	if len(attribute) > 0 && attribute[0] != "" {
		key = attribute[0]
	}

	if identity, ok := c.Locals(key).(*core.Identity); ok {
		return identity
	}

	return core.IdentityFromContext(c.UserContext())
}
