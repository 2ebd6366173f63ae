package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"valid", "ana@example.com", "secret1", false},
		{"email is case insensitive", " ANA@example.com ", "secret1", false},
		{"wrong password", "ana@example.com", "secret2", true},
		{"unknown email", "nobody@example.com", "secret1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.auth.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.True(t, apperrors.IsUnauthorized(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.usuario.ID, user.ID)
		})
	}
}

func TestAuthService_ChangePasswordWrongCurrentKeepsHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.store.Users().GetByID(ctx, f.usuario.ID)
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, f.usuario.Caller(), "not-it", "brand-new")
	require.Error(t, err)
	assert.Equal(t, "Current password is incorrect.", apperrors.FieldErrors(err)["old_password"])

	after, err := f.store.Users().GetByID(ctx, f.usuario.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.ChangePassword(ctx, f.usuario.Caller(), "secret1", "brand-new"))

	_, err := f.auth.Authenticate(ctx, "ana@example.com", "brand-new")
	assert.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, "ana@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	stored, err := f.store.Users().GetByID(ctx, f.usuario.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "brand-new", stored.PasswordHash)
}

func TestAuthService_ChangePasswordTooShort(t *testing.T) {
	f := newFixture(t)
	err := f.auth.ChangePassword(context.Background(), f.usuario.Caller(), "secret1", "123")
	assert.Contains(t, apperrors.FieldErrors(err), "new_password")
}

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, RegisterInput{
		Username: "maria",
		Email:    "Maria@Example.com",
		Password: "secret1",
		Role:     domain.RoleTecnico,
	})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.True(t, f.auth.CheckPassword(user, "secret1"))
	assert.False(t, f.auth.CheckPassword(user, "secret2"))

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"admin role refused", RegisterInput{Username: "x", Email: "x@example.com", Password: "secret1", Role: domain.RoleAdmin}, "role"},
		{"short password", RegisterInput{Username: "x", Email: "x@example.com", Password: "12345", Role: domain.RoleUsuario}, "password"},
		{"missing username", RegisterInput{Email: "x@example.com", Password: "secret1", Role: domain.RoleUsuario}, "username"},
		{"duplicate email", RegisterInput{Username: "x", Email: "maria@example.com", Password: "secret1", Role: domain.RoleUsuario}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tt.in)
			require.Error(t, err)
			assert.Contains(t, apperrors.FieldErrors(err), tt.field)
		})
	}
}

func TestAuthService_LoginAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.auth.Login(ctx, "tech@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, f.tech.ID, result.User.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	sess, err := f.sessions.Get(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, f.tech.ID, sess.UserID)

	claims, err := f.auth.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, claims.SessionID)
	assert.Equal(t, domain.RoleTecnico, claims.Role)

	require.NoError(t, f.auth.Logout(ctx, result.SessionID))
	_, err = f.sessions.Get(ctx, result.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAuthService_LoginFailureCreatesNoSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), "tech@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.auth.EnsureAdmin(ctx, "root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.auth.EnsureAdmin(ctx, "root", "ROOT@example.com", "rootpass")
	require.NoError(t, err)
	assert.False(t, created)

	user, err := f.auth.Authenticate(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}
