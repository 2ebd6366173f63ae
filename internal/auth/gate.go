package auth

import "github.com/spec-kit/helpdesk/internal/domain"

// CanMutateTicket decides whether caller may edit or delete ticket:
// Admins always, Técnicos only when they are the assignee.
func CanMutateTicket(caller domain.Caller, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTecnico:
		return ticket.TechnicianID == caller.ID
	default:
		return false
	}
}

// CanCreateTicket reports whether caller may open tickets.
func CanCreateTicket(caller domain.Caller) bool {
	return caller.Role == domain.RoleAdmin || caller.Role == domain.RoleTecnico
}

// CanReassignTicket reports whether caller may change a ticket's technician.
func CanReassignTicket(caller domain.Caller) bool {
	return caller.Role == domain.RoleAdmin
}

// CanViewTicket reports whether ticket is visible to caller.
func CanViewTicket(caller domain.Caller, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTecnico:
		return ticket.TechnicianID == caller.ID
	case domain.RoleUsuario:
		return ticket.RequesterID == caller.ID
	default:
		return false
	}
}

// CanMutateUser reports whether caller may list, edit or delete accounts.
func CanMutateUser(caller domain.Caller) bool {
	return caller.Role == domain.RoleAdmin
}
