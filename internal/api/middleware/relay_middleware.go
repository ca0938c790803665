package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/mailtosocial/pkg/utils"
)

// RelayAuth guards the relay and cron endpoints with the hourly shared
// secret token. A missing token is 401, a wrong one 403.
func RelayAuth(secret string, now func() time.Time) fiber.Handler {
	if now == nil {
		now = time.Now
	}

	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		if !utils.VerifyRelayToken(secret, token, now()) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid bearer token",
			})
		}

		return c.Next()
	}
}
