package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/accounts/internal/identity"
	"github.com/congo-pay/accounts/internal/middleware"
)

// RegisterIdentityRoutes wires registration, lookup and administrative updates.
// idem, when non-nil, guards registration only.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, jwtmw, idem fiber.Handler) {
	if idem != nil {
		r.Post("/register", idem, h.Register)
	} else {
		r.Post("/register", h.Register)
	}

	r.Get("/users", h.List)
	r.Get("/user", h.List)
	r.Get("/user/:id", h.Get)
	r.Put("/user/:id/status", h.UpdateStatus)
	r.Put("/user/:id/balance", jwtmw, middleware.RequireRole(identity.RoleAdmin), h.UpdateBalance)
}
