// Package whoami returns the identity of the authenticated caller.
package whoami

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/config"
	"github.com/authchain/authchain/internal/web/handler"
	authmiddleware "github.com/authchain/authchain/internal/web/middleware/auth"
)

// Path is the path of the whoami endpoint.
const Path = handler.RootPath + "whoami"

// Response is the whoami body.
type Response struct {
	Identifier string         `json:"identifier"`
	Adapter    string         `json:"adapter"`
	Attributes map[string]any `json:"attributes"`
}

// NewResponse builds the whoami body of identity.
func NewResponse(identity *auth.Identity) Response {
	return Response{
		Identifier: identity.Identifier(),
		Adapter:    identity.AdapterName(),
		Attributes: identity.Attributes(),
	}
}

// Service is the whoami handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the whoami handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the whoami route.
func (s *Service) Init(router fiber.Router, cfg *config.Config, authService *auth.Service) error {
	if router == nil || cfg == nil || authService == nil {
		return errors.New(handler.ErrNilACSFatalLogMsg) //nolint:err113
	}

	s.cfg = cfg

	router.Get(Path, s.Get)

	return nil
}

// Get answers with the identity stored by the auth middleware.
func (s *Service) Get(c *fiber.Ctx) error {
	identity := authmiddleware.Identity(c, s.cfg.Webserver.IdentityAttribute)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(authmiddleware.ErrorResponse{Error: "not authenticated"})
	}

	return c.JSON(NewResponse(identity))
}
