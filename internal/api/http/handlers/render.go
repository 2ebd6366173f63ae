package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CSRFContextKey is where the CSRF middleware stores the form token.
const CSRFContextKey = "csrf"

// Pages renders server-side views with the data every layout needs.
type Pages struct {
	sessions session.Store
}

// NewPages constructs the renderer.
func NewPages(sessions session.Store) *Pages {
	return &Pages{sessions: sessions}
}

// Render executes view inside the main layout. Pending flashes of the
// current session are consumed.
func (p *Pages) Render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		data["CurrentUser"] = principal.User
		flashes, err := p.sessions.PopFlashes(c.UserContext(), principal.SessionID)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		data["Flashes"] = flashes
	}
	data["CSRFToken"] = ""
	if token, ok := c.Locals(CSRFContextKey).(string); ok {
		data["CSRFToken"] = token
	}
	return c.Render(view, data)
}

// Flash queues message for the next page of the current session.
func (p *Pages) Flash(c *fiber.Ctx, message string) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return p.sessions.PushFlash(c.UserContext(), principal.SessionID, message)
}

// RedirectWithFlash flashes message and redirects to location.
func (p *Pages) RedirectWithFlash(c *fiber.Ctx, location, message string) error {
	if err := p.Flash(c, message); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

func requireCaller(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseID(c *fiber.Ctx, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, nil)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
