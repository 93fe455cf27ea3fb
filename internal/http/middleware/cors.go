package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

var corsAllowHeaders = strings.Join([]string{
	"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization",
	RequestIDHeader, UserIDHeader, UserUUIDHeader, UserRoleHeader, IdentityTokenHeader,
}, ", ")

// CORS returns a CORS middleware configuration
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Set("Access-Control-Expose-Headers", "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining")
		c.Set("Access-Control-Max-Age", "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
