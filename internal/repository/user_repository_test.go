package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "name"}

func setupUserRepository(t *testing.T) (UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(pgxmock.PgxPoolIface)
		wantID    int64
		wantErr   error
	}{
		{
			name: "success",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("maria", "maria@example.com", "hash", "Técnico").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
			},
			wantID: 3,
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("maria", "maria@example.com", "hash", "Técnico").
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			},
			wantErr: ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupUserRepository(t)
			tt.setupMock(mock)

			user := &domain.User{Username: "maria", Email: "Maria@Example.com", PasswordHash: "hash", Role: domain.RoleTecnico}
			err := repo.Create(context.Background(), user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	repo, mock := setupUserRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN roles r ON r.id = u.role_id WHERE u.email=$1`)).
		WithArgs("admin@example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(int64(1), "admin", "admin@example.com", "hash", "Admin"))

	user, err := repo.GetByEmail(context.Background(), " Admin@Example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteReferenced(t *testing.T) {
	repo, mock := setupUserRepository(t)
	mock.ExpectExec(`DELETE FROM users`).
		WithArgs(int64(7)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "tickets_tecnico_id_fkey"})

	err := repo.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, ErrReferenced)
}

func TestUserRepository_ListByRole(t *testing.T) {
	repo, mock := setupUserRepository(t)
	role := domain.RoleTecnico
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE r.name=$1 ORDER BY u.id`)).
		WithArgs("Técnico").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(int64(2), "t1", "t1@example.com", "h", "Técnico").
			AddRow(int64(4), "t2", "t2@example.com", "h", "Técnico"))

	users, err := repo.List(context.Background(), UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "t2", users[1].Username)
}
