package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Capability names something a principal may be allowed to do.
type Capability string

const (
	// CapabilityAuthenticated is held by every signed-in user.
	CapabilityAuthenticated Capability = "authenticated"
	// CapabilityAdmin covers reports, directory and license management.
	CapabilityAdmin Capability = "admin"
)

// Can reports whether the principal holds the capability.
func Can(principal *Principal, capability Capability) bool {
	if principal == nil || principal.User == nil {
		return false
	}
	switch capability {
	case CapabilityAuthenticated:
		return true
	case CapabilityAdmin:
		return principal.IsAdmin
	default:
		return false
	}
}

// Require ensures the caller holds every listed capability. It must run
// after AuthMiddleware.Handle.
func Require(capabilities ...Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		for _, capability := range capabilities {
			if !Can(principal, capability) {
				return fiber.NewError(http.StatusForbidden, "admin access required")
			}
		}
		return c.Next()
	}
}
