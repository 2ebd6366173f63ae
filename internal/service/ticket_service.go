package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	logger  *zap.Logger
	now     func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketInput describes ticket creation payload. A zero TechnicianID means
// no technician was selected.
type TicketInput struct {
	Subject      string
	Description  string
	Priority     domain.TicketPriority
	Status       domain.TicketStatus
	RequesterID  int64
	TechnicianID int64
}

// TicketListOptions narrows a role-scoped listing.
type TicketListOptions struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
}

// NewTicketService constructs a TicketService.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		logger:  logger,
		now:     clock,
	}
}

// List returns the tickets visible to caller: everything for an Admin,
// assigned tickets for a Técnico and requested tickets for a Usuario.
func (s *TicketService) List(ctx context.Context, caller domain.Caller, opts TicketListOptions) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses:   opts.Statuses,
		Priorities: opts.Priorities,
	}
	switch caller.Role {
	case domain.RoleAdmin:
	case domain.RoleTecnico:
		id := caller.ID
		filter.TechnicianID = &id
	case domain.RoleUsuario:
		id := caller.ID
		filter.RequesterID = &id
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return tickets, nil
}

// ListAll returns every ticket without scoping.
func (s *TicketService) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return tickets, nil
}

// Get fetches a ticket by id.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return ticket, nil
}

// GetForCaller fetches a ticket and enforces visibility.
func (s *TicketService) GetForCaller(ctx context.Context, caller domain.Caller, id int64) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanViewTicket(caller, ticket) {
		return nil, apperrors.NewForbidden("You do not have permission to view this ticket.")
	}
	return ticket, nil
}

// Create opens a ticket on behalf of caller. A Técnico is always the
// assignee of the tickets they open; an Admin must pick a technician.
func (s *TicketService) Create(ctx context.Context, caller domain.Caller, in TicketInput) (*domain.Ticket, error) {
	if !auth.CanCreateTicket(caller) {
		return nil, apperrors.NewForbidden("You do not have permission to create tickets.")
	}
	if caller.Role == domain.RoleTecnico {
		in.TechnicianID = caller.ID
	}
	return s.create(ctx, in)
}

// CreateUngated creates a ticket without consulting the gate.
func (s *TicketService) CreateUngated(ctx context.Context, in TicketInput) (*domain.Ticket, error) {
	return s.create(ctx, in)
}

func (s *TicketService) create(ctx context.Context, in TicketInput) (*domain.Ticket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)

	fields := validateTicketFields(in.Subject, in.Description, in.Priority, in.Status)
	if in.RequesterID <= 0 {
		fields["usuario_id"] = "Requester is required."
	}
	if in.TechnicianID <= 0 {
		fields["tecnico_id"] = "Technician is required."
	}
	if len(fields) == 0 {
		if err := s.checkReferences(ctx, fields, &in.RequesterID, &in.TechnicianID); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldErrors(fields)
	}

	ticket := &domain.Ticket{
		Subject:      in.Subject,
		Description:  in.Description,
		Priority:     in.Priority,
		Status:       in.Status,
		RequesterID:  in.RequesterID,
		TechnicianID: in.TechnicianID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket")
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("usuario_id", ticket.RequesterID),
		zap.Int64("tecnico_id", ticket.TechnicianID),
	)
	return ticket, nil
}

// Update applies patch to the ticket when caller may mutate it. Moving the
// ticket to another technician requires an Admin.
func (s *TicketService) Update(ctx context.Context, caller domain.Caller, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanMutateTicket(caller, ticket) {
		return nil, apperrors.NewForbidden("You do not have permission to edit this ticket.")
	}
	if patch.TechnicianID != nil && *patch.TechnicianID != ticket.TechnicianID && !auth.CanReassignTicket(caller) {
		return nil, apperrors.NewForbidden("Only administrators can reassign tickets.")
	}
	return s.update(ctx, ticket, patch)
}

// UpdateUngated applies patch without consulting the gate.
func (s *TicketService) UpdateUngated(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, ticket, patch)
}

func (s *TicketService) update(ctx context.Context, ticket *domain.Ticket, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.Subject != nil {
		trimmed := strings.TrimSpace(*patch.Subject)
		patch.Subject = &trimmed
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		patch.Description = &trimmed
	}

	before := *ticket
	patch.Apply(ticket)

	fields := validateTicketFields(ticket.Subject, ticket.Description, ticket.Priority, ticket.Status)
	var requester, technician *int64
	if ticket.RequesterID != before.RequesterID {
		requester = &ticket.RequesterID
	}
	if ticket.TechnicianID != before.TechnicianID {
		technician = &ticket.TechnicianID
	}
	if len(fields) == 0 {
		if err := s.checkReferences(ctx, fields, requester, technician); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldErrors(fields)
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	s.logger.Info("ticket updated", zap.Int64("ticket_id", ticket.ID))
	return ticket, nil
}

// Delete removes the ticket when caller may mutate it.
func (s *TicketService) Delete(ctx context.Context, caller domain.Caller, id int64) error {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanMutateTicket(caller, ticket) {
		return apperrors.NewForbidden("You do not have permission to delete this ticket.")
	}
	return s.DeleteUngated(ctx, id)
}

// DeleteUngated removes the ticket without consulting the gate.
func (s *TicketService) DeleteUngated(ctx context.Context, id int64) error {
	if err := s.tickets.Delete(ctx, id); err != nil {
		return mapRepoError(err, "ticket")
	}
	s.logger.Info("ticket deleted", zap.Int64("ticket_id", id))
	return nil
}

func validateTicketFields(subject, description string, priority domain.TicketPriority, status domain.TicketStatus) map[string]string {
	fields := map[string]string{}
	switch {
	case subject == "":
		fields["asunto"] = "Subject is required."
	case utf8.RuneCountInString(subject) > domain.MaxSubjectLength:
		fields["asunto"] = "Subject must be at most 150 characters."
	}
	if description == "" {
		fields["descripcion"] = "Description is required."
	}
	if !priority.Valid() {
		fields["prioridad"] = "Priority must be Baja, Media or Alta."
	}
	if !status.Valid() {
		fields["estado"] = "Status must be Abierto, En proceso or Cerrado."
	}
	return fields
}

// checkReferences verifies that the non-nil ids point at users holding the
// expected role and records a field error otherwise.
func (s *TicketService) checkReferences(ctx context.Context, fields map[string]string, requesterID, technicianID *int64) error {
	if requesterID != nil {
		msg, err := s.expectRole(ctx, *requesterID, domain.RoleUsuario)
		if err != nil {
			return err
		}
		if msg != "" {
			fields["usuario_id"] = msg
		}
	}
	if technicianID != nil {
		msg, err := s.expectRole(ctx, *technicianID, domain.RoleTecnico)
		if err != nil {
			return err
		}
		if msg != "" {
			fields["tecnico_id"] = msg
		}
	}
	return nil
}

func (s *TicketService) expectRole(ctx context.Context, userID int64, role domain.Role) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "User does not exist.", nil
		}
		return "", mapRepoError(err, "user")
	}
	if user.Role != role {
		return "User must have role " + string(role) + ".", nil
	}
	return "", nil
}
