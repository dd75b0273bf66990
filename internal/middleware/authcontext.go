package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const (
	userIDHeader = "X-User-ID"
	userIDKey    = "user_id"
)

// AuthContext requires a caller identity on every request and stashes it in
// the request locals. Identity verification itself happens upstream; this
// layer only refuses anonymous traffic.
func AuthContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(userIDHeader)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing "+userIDHeader+" header")
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the caller identity set by AuthContext, or "" when absent.
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(userIDKey).(string)
	return userID
}
