package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// PasswordUpdatedMessage is flashed after a successful password change.
const PasswordUpdatedMessage = "✅ Password updated successfully."

// AuthHandler serves login, logout, registration and password pages.
type AuthHandler struct {
	auth    *service.AuthService
	pages   *Pages
	session config.SessionConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, pages *Pages, sessionCfg config.SessionConfig) *AuthHandler {
	return &AuthHandler{auth: authService, pages: pages, session: sessionCfg}
}

// Index GET /.
func (h *AuthHandler) Index(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); ok {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return h.pages.Render(c, "index", fiber.Map{"Title": "Helpdesk"})
}

// LoginForm GET /login.
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); ok {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	data := fiber.Map{"Title": "Log in", "Form": dto.LoginForm{}}
	if c.Query("registered") != "" {
		data["Notice"] = "Account created. You can log in now."
	}
	return h.pages.Render(c, "login", data)
}

// Login POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form submission", nil)
	}
	if err := dto.Validate(form); err != nil {
		return h.renderLogin(c, form, err, "")
	}

	result, err := h.auth.Login(c.UserContext(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return h.renderLogin(c, form, nil, "Invalid email or password.")
		}
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.session.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(c *fiber.Ctx, form dto.LoginForm, validationErr error, failure string) error {
	form.Password = ""
	c.Status(fiber.StatusUnprocessableEntity)
	return h.pages.Render(c, "login", fiber.Map{
		"Title":  "Log in",
		"Form":   form,
		"Errors": apperrors.FieldErrors(validationErr),
		"Error":  failure,
	})
}

// Logout POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if err := h.auth.Logout(c.UserContext(), principal.SessionID); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// RegisterForm GET /register.
func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return h.renderRegister(c, dto.RegisterForm{Role: string(domain.RoleUsuario)}, nil)
}

// Register POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var form dto.RegisterForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form submission", nil)
	}
	if err := dto.Validate(form); err != nil {
		return h.renderRegister(c, form, err)
	}

	_, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Role:     dto.ParsedRole(form.Role),
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			return h.renderRegister(c, form, err)
		}
		return err
	}
	return c.Redirect("/login?registered=1", fiber.StatusSeeOther)
}

func (h *AuthHandler) renderRegister(c *fiber.Ctx, form dto.RegisterForm, validationErr error) error {
	form.Password = ""
	form.ConfirmPassword = ""
	if validationErr != nil {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return h.pages.Render(c, "register", fiber.Map{
		"Title":  "Register",
		"Form":   form,
		"Roles":  domain.SelfServiceRoles,
		"Errors": apperrors.FieldErrors(validationErr),
	})
}

// ChangePasswordForm GET /cambiar-password.
func (h *AuthHandler) ChangePasswordForm(c *fiber.Ctx) error {
	if _, err := requireCaller(c); err != nil {
		return err
	}
	return h.pages.Render(c, "cambiar_password", fiber.Map{"Title": "Change password"})
}

// ChangePassword POST /cambiar-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	var form dto.ChangePasswordForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form submission", nil)
	}
	if err := dto.Validate(form); err != nil {
		return h.renderChangePassword(c, err)
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.Caller(), form.OldPassword, form.NewPassword); err != nil {
		if apperrors.IsValidation(err) {
			return h.renderChangePassword(c, err)
		}
		return err
	}
	return h.pages.RedirectWithFlash(c, "/dashboard", PasswordUpdatedMessage)
}

func (h *AuthHandler) renderChangePassword(c *fiber.Ctx, validationErr error) error {
	c.Status(fiber.StatusUnprocessableEntity)
	return h.pages.Render(c, "cambiar_password", fiber.Map{
		"Title":  "Change password",
		"Errors": apperrors.FieldErrors(validationErr),
	})
}
