package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/accounts/internal/auth"
	"github.com/congo-pay/accounts/internal/identity"
)

// JWTAuth rejects requests without a valid bearer token and stores its claims
// on the request for downstream handlers.
func JWTAuth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Validate(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}
		auth.SetClaims(c, claims)
		return c.Next()
	}
}

// RequireRole allows the request only when the token role is one of roles.
// It must run after JWTAuth.
func RequireRole(roles ...identity.Role) fiber.Handler {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		if _, ok := allowed[claims.Role]; !ok {
			return fiber.NewError(http.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}
