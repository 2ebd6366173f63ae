package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketsHandler serves the JSON ticket API. In open mode it skips the
// session and permission checks entirely.
type TicketsHandler struct {
	service *service.TicketService
	open    bool
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, open bool) *TicketsHandler {
	return &TicketsHandler{service: ticketService, open: open}
}

// callerFor returns the caller in secured mode and ok=false in open mode.
func (h *TicketsHandler) callerFor(c *fiber.Ctx) (domain.Caller, bool, error) {
	if h.open {
		return domain.Caller{}, false, nil
	}
	principal, err := requireCaller(c)
	if err != nil {
		return domain.Caller{}, false, err
	}
	return principal.Caller(), true, nil
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, secured, err := h.callerFor(c)
	if err != nil {
		return err
	}
	var tickets []domain.Ticket
	if secured {
		tickets, err = h.service.List(c.UserContext(), caller, service.TicketListOptions{})
	} else {
		tickets, err = h.service.ListAll(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tickets": dto.NewTicketResponses(tickets)})
}

// CreateTicket POST /tickets (JSON body).
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, secured, err := h.callerFor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TicketInput{
		Subject:     req.Asunto,
		Description: req.Descripcion,
		Priority:    domain.TicketPriority(req.Prioridad),
		Status:      domain.TicketStatus(req.Estado),
		RequesterID: req.UsuarioID,
	}
	if req.TecnicoID != nil {
		input.TechnicianID = *req.TecnicoID
	}

	var ticket *domain.Ticket
	if secured {
		ticket, err = h.service.Create(c.UserContext(), caller, input)
	} else {
		ticket, err = h.service.CreateUngated(c.UserContext(), input)
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Ticket creado",
		"id":         ticket.ID,
		"tecnico_id": ticket.TechnicianID,
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, secured, err := h.callerFor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticket")
	if err != nil {
		return err
	}
	var ticket *domain.Ticket
	if secured {
		ticket, err = h.service.GetForCaller(c.UserContext(), caller, id)
	} else {
		ticket, err = h.service.Get(c.UserContext(), id)
	}
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(*ticket))
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	caller, secured, err := h.callerFor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	var ticket *domain.Ticket
	if secured {
		ticket, err = h.service.Update(c.UserContext(), caller, id, req.Patch())
	} else {
		ticket, err = h.service.UpdateUngated(c.UserContext(), id, req.Patch())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket actualizado", "id": ticket.ID})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	caller, secured, err := h.callerFor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "ticket")
	if err != nil {
		return err
	}
	if secured {
		err = h.service.Delete(c.UserContext(), caller, id)
	} else {
		err = h.service.DeleteUngated(c.UserContext(), id)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket eliminado", "id": id})
}
