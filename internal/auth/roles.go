package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/authz"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// RequireCapability ensures the caller's role grants capability.
func RequireCapability(capability authz.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !authz.Can(identity, capability) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff ensures the caller holds a staff role.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !identity.IsStaff() {
			return apperrors.NewForbidden("staff role required")
		}
		return c.Next()
	}
}
