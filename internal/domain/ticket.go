package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusAbierto   TicketStatus = "Abierto"
	TicketStatusEnProceso TicketStatus = "En proceso"
	TicketStatusCerrado   TicketStatus = "Cerrado"
)

// TicketStatuses lists statuses in display order.
var TicketStatuses = []TicketStatus{TicketStatusAbierto, TicketStatusEnProceso, TicketStatusCerrado}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityBaja  TicketPriority = "Baja"
	TicketPriorityMedia TicketPriority = "Media"
	TicketPriorityAlta  TicketPriority = "Alta"
)

// TicketPriorities lists priorities in display order.
var TicketPriorities = []TicketPriority{TicketPriorityBaja, TicketPriorityMedia, TicketPriorityAlta}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// MaxSubjectLength bounds Ticket.Subject.
const MaxSubjectLength = 150

// Ticket is a support request raised for a Usuario and worked by a Técnico.
type Ticket struct {
	ID           int64
	Subject      string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	RequesterID  int64
	TechnicianID int64
	CreatedAt    time.Time
}

// TicketPatch carries a merge-patch: nil fields keep their stored value.
type TicketPatch struct {
	Subject      *string
	Description  *string
	Priority     *TicketPriority
	Status       *TicketStatus
	RequesterID  *int64
	TechnicianID *int64
}

// Apply copies every present field onto t.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.RequesterID != nil {
		t.RequesterID = *p.RequesterID
	}
	if p.TechnicianID != nil {
		t.TechnicianID = *p.TechnicianID
	}
}
