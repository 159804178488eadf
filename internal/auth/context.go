package auth

import "github.com/gofiber/fiber/v2"

const claimsLocal = "auth_claims"

// SetClaims stores validated claims on the request.
func SetClaims(c *fiber.Ctx, claims Claims) {
	c.Locals(claimsLocal, claims)
}

// ClaimsFrom returns the claims stored by SetClaims.
func ClaimsFrom(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals(claimsLocal).(Claims)
	return claims, ok
}
