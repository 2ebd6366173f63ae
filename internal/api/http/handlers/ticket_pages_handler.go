package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketPagesHandler serves the dashboard and the ticket forms.
type TicketPagesHandler struct {
	tickets *service.TicketService
	users   *service.UserService
	pages   *Pages
}

// NewTicketPagesHandler constructs handler.
func NewTicketPagesHandler(tickets *service.TicketService, users *service.UserService, pages *Pages) *TicketPagesHandler {
	return &TicketPagesHandler{tickets: tickets, users: users, pages: pages}
}

// Dashboard GET /dashboard.
func (h *TicketPagesHandler) Dashboard(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	caller := principal.Caller()

	var opts service.TicketListOptions
	estado := domain.TicketStatus(c.Query("estado"))
	if estado.Valid() {
		opts.Statuses = []domain.TicketStatus{estado}
	}

	tickets, err := h.tickets.List(c.UserContext(), caller, opts)
	if err != nil {
		return err
	}
	return h.pages.Render(c, "dashboard", fiber.Map{
		"Title":     "Dashboard",
		"Tickets":   tickets,
		"Statuses":  domain.TicketStatuses,
		"Estado":    string(estado),
		"CanCreate": auth.CanCreateTicket(caller),
		"IsAdmin":   caller.IsAdmin(),
		"CallerID":  caller.ID,
	})
}

// New GET /tickets/nuevo.
func (h *TicketPagesHandler) New(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	if !auth.CanCreateTicket(principal.Caller()) {
		return apperrors.NewForbidden("You do not have permission to create tickets.")
	}
	form := dto.TicketForm{
		Prioridad: string(domain.TicketPriorityMedia),
		Estado:    string(domain.TicketStatusAbierto),
	}
	return h.renderForm(c, principal.Caller(), form, 0, nil)
}

// Create POST /tickets (form submission).
func (h *TicketPagesHandler) Create(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	caller := principal.Caller()
	if !auth.CanCreateTicket(caller) {
		return apperrors.NewForbidden("You do not have permission to create tickets.")
	}

	var form dto.TicketForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form submission", nil)
	}
	form.Normalize()
	if err := dto.Validate(form); err != nil {
		return h.renderForm(c, caller, form, 0, err)
	}

	_, err = h.tickets.Create(c.UserContext(), caller, service.TicketInput{
		Subject:      form.Asunto,
		Description:  form.Descripcion,
		Priority:     domain.TicketPriority(form.Prioridad),
		Status:       domain.TicketStatus(form.Estado),
		RequesterID:  form.UsuarioID,
		TechnicianID: form.TecnicoID,
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			return h.renderForm(c, caller, form, 0, err)
		}
		return err
	}
	return h.pages.RedirectWithFlash(c, "/dashboard", "Ticket created.")
}

// Edit GET /tickets/:id/editar.
func (h *TicketPagesHandler) Edit(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !auth.CanMutateTicket(principal.Caller(), ticket) {
		return apperrors.NewForbidden("You do not have permission to edit this ticket.")
	}
	return h.renderForm(c, principal.Caller(), dto.TicketFormFromDomain(ticket), ticket.ID, nil)
}

// Update POST /tickets/:id/editar.
func (h *TicketPagesHandler) Update(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	caller := principal.Caller()
	id, err := parseID(c, "ticket")
	if err != nil {
		return err
	}

	var form dto.TicketForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form submission", nil)
	}
	form.Normalize()
	if err := dto.Validate(form); err != nil {
		return h.renderForm(c, caller, form, id, err)
	}

	_, err = h.tickets.Update(c.UserContext(), caller, id, form.Patch(!auth.CanReassignTicket(caller)))
	if err != nil {
		if apperrors.IsValidation(err) {
			return h.renderForm(c, caller, form, id, err)
		}
		return err
	}
	return h.pages.RedirectWithFlash(c, "/dashboard", "Ticket updated.")
}

// Delete POST /tickets/:id/eliminar.
func (h *TicketPagesHandler) Delete(c *fiber.Ctx) error {
	principal, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticket")
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.UserContext(), principal.Caller(), id); err != nil {
		return err
	}
	return h.pages.RedirectWithFlash(c, "/dashboard", "Ticket deleted.")
}

func (h *TicketPagesHandler) renderForm(c *fiber.Ctx, caller domain.Caller, form dto.TicketForm, ticketID int64, validationErr error) error {
	requesters, err := h.users.ListByRole(c.UserContext(), domain.RoleUsuario)
	if err != nil {
		return err
	}
	technicians, err := h.users.ListByRole(c.UserContext(), domain.RoleTecnico)
	if err != nil {
		return err
	}

	title := "New ticket"
	action := "/tickets"
	if ticketID > 0 {
		title = "Edit ticket"
		action = "/tickets/" + formatID(ticketID) + "/editar"
	}
	if validationErr != nil {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return h.pages.Render(c, "ticket_form", fiber.Map{
		"Title":          title,
		"Action":         action,
		"TicketID":       ticketID,
		"Form":           form,
		"Errors":         apperrors.FieldErrors(validationErr),
		"Priorities":     domain.TicketPriorities,
		"Statuses":       domain.TicketStatuses,
		"Requesters":     requesters,
		"Technicians":    technicians,
		"PickTechnician": auth.CanReassignTicket(caller),
	})
}
