package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const conflictMessage = "User or agent with this email or mobile number already exists. Please login."

// Handler exposes account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name   string `json:"name"`
	PIN    string `json:"pin"`
	Mobile string `json:"mobile"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type balanceRequest struct {
	Balance *int64 `json:"balance"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HTTPError translates identity errors into fiber errors. Unknown errors are
// returned unchanged so the server error handler can log them and answer 500.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConflict):
		return fiber.NewError(http.StatusBadRequest, conflictMessage)
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "User not found. Please check your credentials.")
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(http.StatusUnauthorized, "Invalid PIN. Please try again.")
	}
	return err
}

// Register handles account onboarding. No token is issued; callers log in separately.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid JSON payload")
	}
	_, err := h.service.Register(c.UserContext(), RegisterInput{
		Name:   req.Name,
		PIN:    req.PIN,
		Mobile: req.Mobile,
		Email:  req.Email,
		Role:   Role(req.Role),
	})
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(messageResponse{Message: "User registered successfully"})
}

// Get returns a single account.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(user)
}

// List returns accounts, optionally narrowed by search, role and status query parameters.
func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext(), ListFilter{
		Search: c.Query("search"),
		Role:   Role(c.Query("role")),
		Status: Status(c.Query("status")),
	})
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(users)
}

// UpdateStatus changes the administrative status of an account.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), Status(req.Status)); err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(messageResponse{Message: "User status updated successfully"})
}

// UpdateBalance overwrites the balance of an account.
func (h *Handler) UpdateBalance(c *fiber.Ctx) error {
	var req balanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid JSON payload")
	}
	if req.Balance == nil {
		return fiber.NewError(http.StatusBadRequest, "balance is required")
	}
	if err := h.service.UpdateBalance(c.UserContext(), c.Params("id"), *req.Balance); err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(messageResponse{Message: "User balance updated successfully"})
}
