package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(router fiber.Router, cfg *config.Config, authService *auth.Service) error
}
