package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/session"
)

// NoPermissionMessage is flashed when an account page is refused.
const NoPermissionMessage = "You do not have permission to view this page."

// RequireAdminPage lets only Admins through; anyone else is sent back to
// the dashboard with a flash notice.
func RequireAdminPage(sessions session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		if !CanMutateUser(principal.Caller()) {
			if err := sessions.PushFlash(c.UserContext(), principal.SessionID, NoPermissionMessage); err != nil {
				return err
			}
			return c.Redirect("/dashboard", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
