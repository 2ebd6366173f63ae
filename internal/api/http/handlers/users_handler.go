package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UsersHandler serves the Admin account pages.
type UsersHandler struct {
	users *service.UserService
	pages *Pages
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, pages *Pages) *UsersHandler {
	return &UsersHandler{users: users, pages: pages}
}

// List GET /usuarios.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	users, err := h.users.List(c.UserContext(), principal.Caller())
	if err != nil {
		return err
	}
	return h.pages.Render(c, "usuarios", fiber.Map{
		"Title":    "Users",
		"Users":    users,
		"CallerID": principal.User.ID,
	})
}

// Edit GET /usuarios/:id/editar.
func (h *UsersHandler) Edit(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "user")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), principal.Caller(), id)
	if err != nil {
		return err
	}
	return h.renderForm(c, id, dto.UserEditFormFromDomain(user), nil)
}

// Update POST /usuarios/:id/editar.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "user")
	if err != nil {
		return err
	}

	var form dto.UserEditForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form submission", nil)
	}
	if err := dto.Validate(form); err != nil {
		return h.renderForm(c, id, form, err)
	}

	_, err = h.users.Update(c.UserContext(), principal.Caller(), id, service.UserUpdateInput{
		Username: form.Username,
		Email:    form.Email,
		Role:     dto.ParsedRole(form.Role),
	})
	switch {
	case err == nil:
		return h.pages.RedirectWithFlash(c, "/usuarios", "User updated.")
	case apperrors.IsValidation(err):
		return h.renderForm(c, id, form, err)
	case apperrors.IsConflict(err):
		return h.pages.RedirectWithFlash(c, "/usuarios", apperrors.ToDomainError(err).Message)
	default:
		return err
	}
}

// Delete POST /usuarios/:id/eliminar.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "user")
	if err != nil {
		return err
	}
	err = h.users.Delete(c.UserContext(), principal.Caller(), id)
	switch {
	case err == nil:
		return h.pages.RedirectWithFlash(c, "/usuarios", "User deleted.")
	case apperrors.IsConflict(err):
		return h.pages.RedirectWithFlash(c, "/usuarios", apperrors.ToDomainError(err).Message)
	default:
		return err
	}
}

func (h *UsersHandler) renderForm(c *fiber.Ctx, id int64, form dto.UserEditForm, validationErr error) error {
	if validationErr != nil {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return h.pages.Render(c, "usuario_form", fiber.Map{
		"Title":  "Edit user",
		"Action": "/usuarios/" + formatID(id) + "/editar",
		"Form":   form,
		"Roles":  domain.Roles,
		"Errors": apperrors.FieldErrors(validationErr),
	})
}
