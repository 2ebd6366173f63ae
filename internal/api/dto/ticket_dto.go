package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketForm is submitted by the create and edit pages. TecnicoID is zero
// when the select was left empty or is not shown.
type TicketForm struct {
	Asunto      string `form:"asunto" validate:"required,max=150"`
	Descripcion string `form:"descripcion" validate:"required"`
	Prioridad   string `form:"prioridad" validate:"required,prioridad"`
	Estado      string `form:"estado" validate:"required,estado"`
	UsuarioID   int64  `form:"usuario_id" validate:"gt=0"`
	TecnicoID   int64  `form:"tecnico_id" validate:"omitempty,gt=0"`
}

// Normalize trims free-text fields.
func (f *TicketForm) Normalize() {
	f.Asunto = strings.TrimSpace(f.Asunto)
	f.Descripcion = strings.TrimSpace(f.Descripcion)
}

// Patch converts the form into a full merge-patch. The technician is left
// untouched when keepTechnician is set.
func (f TicketForm) Patch(keepTechnician bool) domain.TicketPatch {
	priority := domain.TicketPriority(f.Prioridad)
	status := domain.TicketStatus(f.Estado)
	patch := domain.TicketPatch{
		Subject:     &f.Asunto,
		Description: &f.Descripcion,
		Priority:    &priority,
		Status:      &status,
		RequesterID: &f.UsuarioID,
	}
	if !keepTechnician && f.TecnicoID > 0 {
		patch.TechnicianID = &f.TecnicoID
	}
	return patch
}

// TicketFormFromDomain fills the edit form from a stored ticket.
func TicketFormFromDomain(t *domain.Ticket) TicketForm {
	return TicketForm{
		Asunto:      t.Subject,
		Descripcion: t.Description,
		Prioridad:   string(t.Priority),
		Estado:      string(t.Status),
		UsuarioID:   t.RequesterID,
		TecnicoID:   t.TechnicianID,
	}
}

// CreateTicketRequest is the JSON create payload.
type CreateTicketRequest struct {
	Asunto      string `json:"asunto" validate:"required,max=150"`
	Descripcion string `json:"descripcion" validate:"required"`
	Prioridad   string `json:"prioridad" validate:"required,prioridad"`
	Estado      string `json:"estado" validate:"required,estado"`
	UsuarioID   int64  `json:"usuario_id" validate:"gt=0"`
	TecnicoID   *int64 `json:"tecnico_id" validate:"omitempty,gt=0"`
}

// UpdateTicketRequest is the JSON merge-patch payload; absent or null
// fields keep their stored value.
type UpdateTicketRequest struct {
	Asunto      *string `json:"asunto" validate:"omitempty,max=150"`
	Descripcion *string `json:"descripcion"`
	Prioridad   *string `json:"prioridad" validate:"omitempty,prioridad"`
	Estado      *string `json:"estado" validate:"omitempty,estado"`
	UsuarioID   *int64  `json:"usuario_id" validate:"omitempty,gt=0"`
	TecnicoID   *int64  `json:"tecnico_id" validate:"omitempty,gt=0"`
}

// Patch converts the request into a domain patch.
func (r UpdateTicketRequest) Patch() domain.TicketPatch {
	patch := domain.TicketPatch{
		Subject:      r.Asunto,
		Description:  r.Descripcion,
		RequesterID:  r.UsuarioID,
		TechnicianID: r.TecnicoID,
	}
	if r.Prioridad != nil {
		p := domain.TicketPriority(*r.Prioridad)
		patch.Priority = &p
	}
	if r.Estado != nil {
		s := domain.TicketStatus(*r.Estado)
		patch.Status = &s
	}
	return patch
}

// TicketResponse is the JSON shape of a ticket.
type TicketResponse struct {
	ID            int64     `json:"id"`
	Asunto        string    `json:"asunto"`
	Descripcion   string    `json:"descripcion"`
	Prioridad     string    `json:"prioridad"`
	Estado        string    `json:"estado"`
	UsuarioID     int64     `json:"usuario_id"`
	TecnicoID     int64     `json:"tecnico_id"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		Asunto:        t.Subject,
		Descripcion:   t.Description,
		Prioridad:     string(t.Priority),
		Estado:        string(t.Status),
		UsuarioID:     t.RequesterID,
		TecnicoID:     t.TechnicianID,
		FechaCreacion: t.CreatedAt.UTC(),
	}
}

// NewTicketResponses maps a list of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}
