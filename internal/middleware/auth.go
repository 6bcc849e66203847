package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stephan018/sportsync-connect-sub000/pkg/utils"
)

const bearerPrefix = "Bearer "

// AuthRequired validates the bearer token and stashes the caller's identity
// in locals, where the handlers' role checks pick it up.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), bearerPrefix)
		if !found || token == "" {
			return unauthorized(c, "Missing or malformed authorization header")
		}

		claims, err := utils.ValidateToken(token, secret)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}
