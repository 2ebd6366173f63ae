package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func ticketIDs(tickets []domain.Ticket) []int64 {
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestTicketService_ListIsRoleScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.addUser(t, "luis", "luis@example.com", domain.RoleUsuario)

	a := f.addTicket(t, "printer", f.usuario, f.tech)
	b := f.addTicket(t, "vpn", f.usuario, f.tech2)
	c := f.addTicket(t, "mail", other, f.tech)

	tests := []struct {
		name   string
		caller domain.Caller
		want   []int64
	}{
		{"admin sees all", f.admin.Caller(), []int64{a.ID, b.ID, c.ID}},
		{"tecnico sees assigned", f.tech.Caller(), []int64{a.ID, c.ID}},
		{"second tecnico", f.tech2.Caller(), []int64{b.ID}},
		{"usuario sees requested", f.usuario.Caller(), []int64{a.ID, b.ID}},
		{"other usuario", other.Caller(), []int64{c.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.tickets.List(ctx, tt.caller, TicketListOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ticketIDs(got))
		})
	}
}

func TestTicketService_ListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.addTicket(t, "open", f.usuario, f.tech)
	closed := f.addTicket(t, "closed", f.usuario, f.tech)
	status := domain.TicketStatusCerrado
	_, err := f.tickets.UpdateUngated(ctx, closed.ID, domain.TicketPatch{Status: &status})
	require.NoError(t, err)

	got, err := f.tickets.List(ctx, f.admin.Caller(), TicketListOptions{Statuses: []domain.TicketStatus{domain.TicketStatusAbierto}})
	require.NoError(t, err)
	assert.Equal(t, []int64{open.ID}, ticketIDs(got))
}

func TestTicketService_ListUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.List(context.Background(), domain.Caller{ID: 1, Role: "Guest"}, TicketListOptions{})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestTicketService_CreateAsTecnicoAssignsSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, submitted := range []int64{0, f.tech2.ID, f.admin.ID} {
		ticket, err := f.tickets.Create(ctx, f.tech.Caller(), TicketInput{
			Subject:      "disk full",
			Description:  "server out of space",
			Priority:     domain.TicketPriorityAlta,
			Status:       domain.TicketStatusAbierto,
			RequesterID:  f.usuario.ID,
			TechnicianID: submitted,
		})
		require.NoError(t, err)
		assert.Equal(t, f.tech.ID, ticket.TechnicianID)
	}
}

func TestTicketService_CreateAsAdminRequiresTechnician(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.Create(context.Background(), f.admin.Caller(), TicketInput{
		Subject:     "keyboard",
		Description: "broken keys",
		Priority:    domain.TicketPriorityBaja,
		Status:      domain.TicketStatusAbierto,
		RequesterID: f.usuario.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, apperrors.FieldErrors(err), "tecnico_id")

	all, err := f.tickets.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTicketService_CreateAsUsuarioForbidden(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.Create(context.Background(), f.usuario.Caller(), TicketInput{
		Subject:      "help",
		Description:  "please",
		Priority:     domain.TicketPriorityBaja,
		Status:       domain.TicketStatusAbierto,
		RequesterID:  f.usuario.ID,
		TechnicianID: f.tech.ID,
	})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestTicketService_CreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.tickets.Create(ctx, f.admin.Caller(), TicketInput{
		Subject:      "  monitor flickers ",
		Description:  "since monday",
		Priority:     domain.TicketPriorityMedia,
		Status:       domain.TicketStatusEnProceso,
		RequesterID:  f.usuario.ID,
		TechnicianID: f.tech2.ID,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	fetched, err := f.tickets.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "monitor flickers", fetched.Subject)
	assert.Equal(t, "since monday", fetched.Description)
	assert.Equal(t, domain.TicketPriorityMedia, fetched.Priority)
	assert.Equal(t, domain.TicketStatusEnProceso, fetched.Status)
	assert.Equal(t, f.usuario.ID, fetched.RequesterID)
	assert.Equal(t, f.tech2.ID, fetched.TechnicianID)
	assert.False(t, fetched.CreatedAt.IsZero())
	assert.Equal(t, fixedNow, fetched.CreatedAt)
}

func TestTicketService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	valid := func() TicketInput {
		return TicketInput{
			Subject:      "subject",
			Description:  "description",
			Priority:     domain.TicketPriorityBaja,
			Status:       domain.TicketStatusAbierto,
			RequesterID:  f.usuario.ID,
			TechnicianID: f.tech.ID,
		}
	}

	tests := []struct {
		name  string
		mod   func(*TicketInput)
		field string
	}{
		{"blank subject", func(in *TicketInput) { in.Subject = "   " }, "asunto"},
		{"long subject", func(in *TicketInput) { in.Subject = strings.Repeat("á", 151) }, "asunto"},
		{"missing description", func(in *TicketInput) { in.Description = "" }, "descripcion"},
		{"bad priority", func(in *TicketInput) { in.Priority = "Urgente" }, "prioridad"},
		{"bad status", func(in *TicketInput) { in.Status = "Pendiente" }, "estado"},
		{"missing requester", func(in *TicketInput) { in.RequesterID = 0 }, "usuario_id"},
		{"requester not usuario", func(in *TicketInput) { in.RequesterID = f.tech2.ID }, "usuario_id"},
		{"unknown requester", func(in *TicketInput) { in.RequesterID = 999 }, "usuario_id"},
		{"technician not tecnico", func(in *TicketInput) { in.TechnicianID = f.admin.ID }, "tecnico_id"},
		{"unknown technician", func(in *TicketInput) { in.TechnicianID = 999 }, "tecnico_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mod(&in)
			_, err := f.tickets.Create(context.Background(), f.admin.Caller(), in)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, apperrors.FieldErrors(err), tt.field)
		})
	}

	t.Run("subject of exactly 150 characters", func(t *testing.T) {
		in := valid()
		in.Subject = strings.Repeat("a", domain.MaxSubjectLength)
		_, err := f.tickets.Create(context.Background(), f.admin.Caller(), in)
		assert.NoError(t, err)
	})
}

func TestTicketService_UpdateSubjectPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.addTicket(t, "old subject", f.usuario, f.tech)

	subject := "new subject"
	_, err := f.tickets.Update(ctx, f.tech.Caller(), ticket.ID, domain.TicketPatch{Subject: &subject})
	require.NoError(t, err)

	fetched, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "new subject", fetched.Subject)
	assert.Equal(t, "details", fetched.Description)
	assert.Equal(t, ticket.CreatedAt, fetched.CreatedAt)
}

func TestTicketService_UpdateGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.addTicket(t, "printer", f.usuario, f.tech)
	status := domain.TicketStatusCerrado

	tests := []struct {
		name    string
		caller  domain.Caller
		patch   domain.TicketPatch
		wantErr func(error) bool
	}{
		{"owning tecnico", f.tech.Caller(), domain.TicketPatch{Status: &status}, nil},
		{"admin", f.admin.Caller(), domain.TicketPatch{Status: &status}, nil},
		{"other tecnico", f.tech2.Caller(), domain.TicketPatch{Status: &status}, apperrors.IsForbidden},
		{"requesting usuario", f.usuario.Caller(), domain.TicketPatch{Status: &status}, apperrors.IsForbidden},
		{"tecnico reassigns", f.tech.Caller(), domain.TicketPatch{TechnicianID: &f.tech2.ID}, apperrors.IsForbidden},
		{"tecnico keeps assignment", f.tech.Caller(), domain.TicketPatch{TechnicianID: &f.tech.ID}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tickets.Update(ctx, tt.caller, ticket.ID, tt.patch)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}

	fetched, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, f.tech.ID, fetched.TechnicianID)
}

func TestTicketService_AdminReassigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.addTicket(t, "printer", f.usuario, f.tech)

	updated, err := f.tickets.Update(ctx, f.admin.Caller(), ticket.ID, domain.TicketPatch{TechnicianID: &f.tech2.ID})
	require.NoError(t, err)
	assert.Equal(t, f.tech2.ID, updated.TechnicianID)

	_, err = f.tickets.Update(ctx, f.admin.Caller(), ticket.ID, domain.TicketPatch{TechnicianID: &f.usuario.ID})
	require.Error(t, err)
	assert.Contains(t, apperrors.FieldErrors(err), "tecnico_id")
}

func TestTicketService_UpdateRejectsInvalidFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.addTicket(t, "printer", f.usuario, f.tech)

	empty := ""
	_, err := f.tickets.UpdateUngated(ctx, ticket.ID, domain.TicketPatch{Subject: &empty})
	require.Error(t, err)
	assert.Contains(t, apperrors.FieldErrors(err), "asunto")

	fetched, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "printer", fetched.Subject)
}

func TestTicketService_UpdateMissing(t *testing.T) {
	f := newFixture(t)
	subject := "x"
	_, err := f.tickets.Update(context.Background(), f.admin.Caller(), 42, domain.TicketPatch{Subject: &subject})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTicketService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.addTicket(t, "printer", f.usuario, f.tech)

	err := f.tickets.Delete(ctx, f.tech2.Caller(), ticket.ID)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.tickets.Delete(ctx, f.tech.Caller(), ticket.ID))

	_, err = f.tickets.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTicketService_DeleteMissing(t *testing.T) {
	f := newFixture(t)

	err := f.tickets.Delete(context.Background(), f.admin.Caller(), 404)
	assert.True(t, apperrors.IsNotFound(err))

	err = f.tickets.DeleteUngated(context.Background(), 404)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTicketService_GetForCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.addTicket(t, "printer", f.usuario, f.tech)

	_, err := f.tickets.GetForCaller(ctx, f.usuario.Caller(), ticket.ID)
	assert.NoError(t, err)
	_, err = f.tickets.GetForCaller(ctx, f.tech2.Caller(), ticket.ID)
	assert.True(t, apperrors.IsForbidden(err))
}

type failingTicketRepo struct {
	repository.TicketRepository
	err error
}

func (r failingTicketRepo) List(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, r.err
}

func (r failingTicketRepo) Create(context.Context, *domain.Ticket) error {
	return r.err
}

func TestTicketService_ConstraintRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	svc := NewTicketService(TicketDependencies{
		TicketRepo: failingTicketRepo{err: fmt.Errorf("%w: tecnico_id is not a Técnico", repository.ErrConstraint)},
		UserRepo:   f.store.Users(),
	})

	_, err := svc.CreateUngated(context.Background(), TicketInput{
		Subject:      "Laptop",
		Description:  "won't boot",
		Priority:     domain.TicketPriorityAlta,
		Status:       domain.TicketStatusAbierto,
		RequesterID:  f.usuario.ID,
		TechnicianID: f.tech.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestTicketService_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewTicketService(TicketDependencies{
		TicketRepo: failingTicketRepo{err: errors.New("connection refused")},
		UserRepo:   f.store.Users(),
	})

	_, err := svc.ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))
	assert.Equal(t, "connection refused", apperrors.ToDomainError(err).Message)
}
