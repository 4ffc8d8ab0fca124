package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// RequireSession rejects anonymous callers.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("Unauthorized")
		}
		return c.Next()
	}
}

// RequireAdmin rejects anonymous and non-admin callers alike.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Unauthorized")
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("")
		}
		return c.Next()
	}
}
