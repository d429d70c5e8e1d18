package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/fanforge/creatorpay/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
)

// OpsTokenMiddleware authenticates operational API requests with a shared
// token. Without OPS_API_TOKEN configured the ops surface is unreachable.
func OpsTokenMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := env.GetEnv("OPS_API_TOKEN", "")
		if expected == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "ops_api_disabled", "message": "OPS_API_TOKEN is not configured"})
		}

		token := extractOpsToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing ops token"})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid ops token"})
		}

		return c.Next()
	}
}

func extractOpsToken(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("X-Ops-Token")); v != "" {
		return v
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
