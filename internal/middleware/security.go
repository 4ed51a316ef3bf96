package middleware

import (
	"strings"

	"go-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// SecurityMiddleware builds the request identity from the Sec-Username and
// Sec-Roles headers set by the upstream trusted proxy and injects it into
// the request locals.
func SecurityMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			// Inject dummy context for dev
			dummyClaims := &utils.UserClaims{
				Username: "dev-admin",
				Roles:    []string{utils.RoleSuperuser},
			}
			c.Locals(utils.UserClaimsKey, dummyClaims)
			return c.Next()
		}

		username := c.Get("Sec-Username")
		if username == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Sec-Username header required",
			})
		}

		claims := &utils.UserClaims{
			Username: username,
			Roles:    parseRoles(c.Get("Sec-Roles")),
		}

		c.Locals(utils.UserClaimsKey, claims)
		return c.Next()
	}
}

// RequireRole rejects requests whose claims carry none of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		for _, role := range roles {
			if claims.HasRole(role) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: Insufficient permissions",
		})
	}
}

func parseRoles(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}
