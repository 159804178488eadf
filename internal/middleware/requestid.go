package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const (
	requestIDHeader = fiber.HeaderXRequestID
	requestIDKey    = "request_id"
)

// RequestID reuses an inbound X-Request-ID or mints a uuid, echoing it in the
// response.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     requestIDHeader,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	})
}

// RequestIDFrom returns the identifier assigned by RequestID, if any.
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
