package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestUserService_NonAdminDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, caller := range []domain.Caller{f.tech.Caller(), f.usuario.Caller()} {
		_, err := f.users.List(ctx, caller)
		assert.True(t, apperrors.IsForbidden(err))

		_, err = f.users.Update(ctx, caller, f.tech2.ID, UserUpdateInput{Username: "x", Email: "x@example.com", Role: domain.RoleAdmin})
		assert.True(t, apperrors.IsForbidden(err))

		err = f.users.Delete(ctx, caller, f.tech2.ID)
		assert.True(t, apperrors.IsForbidden(err))
	}

	stored, err := f.store.Users().GetByID(ctx, f.tech2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTecnico, stored.Role)
}

func TestUserService_AdminListsAndEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.users.List(ctx, f.admin.Caller())
	require.NoError(t, err)
	assert.Len(t, users, 4)

	updated, err := f.users.Update(ctx, f.admin.Caller(), f.tech2.ID, UserUpdateInput{
		Username: "promoted",
		Email:    "Promoted@example.com",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "promoted@example.com", updated.Email)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	techs, err := f.users.ListByRole(ctx, domain.RoleTecnico)
	require.NoError(t, err)
	require.Len(t, techs, 1)
	assert.Equal(t, f.tech.ID, techs[0].ID)
}

func TestUserService_UpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Update(ctx, f.admin.Caller(), f.tech.ID, UserUpdateInput{Username: "t", Email: "ana@example.com", Role: domain.RoleTecnico})
	assert.Contains(t, apperrors.FieldErrors(err), "email")

	_, err = f.users.Update(ctx, f.admin.Caller(), f.tech.ID, UserUpdateInput{Username: "t", Email: "t@example.com", Role: "Root"})
	assert.Contains(t, apperrors.FieldErrors(err), "role")

	_, err = f.users.Update(ctx, f.admin.Caller(), 999, UserUpdateInput{Username: "t", Email: "t@example.com", Role: domain.RoleUsuario})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserService_RoleChangeBlockedByTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTicket(t, "printer", f.usuario, f.tech)

	_, err := f.users.Update(ctx, f.admin.Caller(), f.tech.ID, UserUpdateInput{Username: "tech", Email: "tech@example.com", Role: domain.RoleUsuario})
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.users.Update(ctx, f.admin.Caller(), f.tech.ID, UserUpdateInput{Username: "renamed", Email: "tech@example.com", Role: domain.RoleTecnico})
	assert.NoError(t, err)
}

func TestUserService_OwnRoleIsLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Update(ctx, f.admin.Caller(), f.admin.ID, UserUpdateInput{Username: "admin", Email: "admin@example.com", Role: domain.RoleUsuario})
	assert.True(t, apperrors.IsConflict(err))

	stored, err := f.store.Users().GetByID(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)

	updated, err := f.users.Update(ctx, f.admin.Caller(), f.admin.ID, UserUpdateInput{Username: "root", Email: "admin@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "root", updated.Username)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTicket(t, "printer", f.usuario, f.tech)

	tests := []struct {
		name    string
		id      int64
		wantErr func(error) bool
	}{
		{"self", f.admin.ID, apperrors.IsConflict},
		{"referenced by tickets", f.tech.ID, apperrors.IsConflict},
		{"missing", 999, apperrors.IsNotFound},
		{"unreferenced", f.tech2.ID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.users.Delete(ctx, f.admin.Caller(), tt.id)
			if tt.wantErr == nil {
				require.NoError(t, err)
				_, err = f.store.Users().GetByID(ctx, tt.id)
				assert.Error(t, err)
				return
			}
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}
}
