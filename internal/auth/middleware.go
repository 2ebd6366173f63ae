package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User      *domain.User
	SessionID string
}

// Caller returns the identity passed to services.
func (p *Principal) Caller() domain.Caller {
	return p.User.Caller()
}

// SessionMiddleware resolves the session cookie into a Principal.
type SessionMiddleware struct {
	tokens     *TokenManager
	sessions   session.Store
	users      repository.UserRepository
	cookieName string
	logger     *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, sessions session.Store, users repository.UserRepository, cookieName string, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{
		tokens:     tokens,
		sessions:   sessions,
		users:      users,
		cookieName: cookieName,
		logger:     logger,
	}
}

// CookieName is the name of the session cookie.
func (m *SessionMiddleware) CookieName() string {
	return m.cookieName
}

// Load attaches the Principal when the request carries a live session.
// Anonymous requests pass through untouched.
func (m *SessionMiddleware) Load(c *fiber.Ctx) error {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return c.Next()
	}

	principal, err := m.resolve(c, raw)
	if err != nil {
		return err
	}
	if principal == nil {
		c.ClearCookie(m.cookieName)
		return c.Next()
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// resolve returns nil without error when the cookie no longer maps to a
// valid session.
func (m *SessionMiddleware) resolve(c *fiber.Ctx, raw string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		m.logger.Debug("rejected session token", zap.Error(err))
		return nil, nil
	}

	ctx := c.UserContext()
	sess, err := m.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	if sess.UserID != claims.UserID {
		return nil, nil
	}

	user, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return &Principal{User: user, SessionID: sess.ID}, nil
}

// RequirePage redirects anonymous visitors to the login page.
func (m *SessionMiddleware) RequirePage(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); !ok {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPI rejects anonymous JSON callers.
func (m *SessionMiddleware) RequireAPI(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil && principal.User != nil
}

// CallerFromContext returns the caller identity of an authenticated request.
func CallerFromContext(c *fiber.Ctx) (domain.Caller, bool) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return domain.Caller{}, false
	}
	return principal.Caller(), true
}
