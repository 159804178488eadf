package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/accounts/internal/identity"
)

// Handler exposes login and the current-account profile.
type Handler struct {
	ids *identity.Service
	svc *Service
}

// NewHandler builds the auth HTTP handler.
func NewHandler(ids *identity.Service, svc *Service) *Handler {
	return &Handler{ids: ids, svc: svc}
}

type loginRequest struct {
	EmailOrMobile string `json:"emailOrMobile"`
	PIN           string `json:"pin"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login validates credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid JSON payload")
	}
	session, err := h.svc.Login(c.UserContext(), req.EmailOrMobile, req.PIN)
	if err != nil {
		return identity.HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(loginResponse{Token: session.Token})
}

// Me returns the account that owns the bearer token.
func (h *Handler) Me(c *fiber.Ctx) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.ids.Get(c.UserContext(), claims.SubjectID())
	if err != nil {
		return identity.HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(user)
}
