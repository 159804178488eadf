package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/accounts/internal/auth"
)

// RegisterAuthRoutes wires login and the token-owner profile.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, jwtmw fiber.Handler) {
	r.Post("/login", h.Login)
	r.Get("/me", jwtmw, h.Me)
}
