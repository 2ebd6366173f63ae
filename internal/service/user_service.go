package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var errUserAdminOnly = apperrors.NewForbidden("You do not have permission to view this page.")

// UserService implements account administration.
type UserService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
}

// UserUpdateInput is the Admin-editable part of an account.
type UserUpdateInput struct {
	Username string
	Email    string
	Role     domain.Role
}

// NewUserService constructs a UserService.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: deps.UserRepo, tickets: deps.TicketRepo, logger: logger}
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context, caller domain.Caller) ([]domain.User, error) {
	if !auth.CanMutateUser(caller) {
		return nil, errUserAdminOnly
	}
	users, err := s.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return users, nil
}

// ListByRole returns accounts holding role, used to fill ticket form choices.
func (s *UserService) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	users, err := s.users.List(ctx, repository.UserFilter{Role: &role})
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return users, nil
}

// Get returns one account. Admin only.
func (s *UserService) Get(ctx context.Context, caller domain.Caller, id int64) (*domain.User, error) {
	if !auth.CanMutateUser(caller) {
		return nil, errUserAdminOnly
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// Update changes profile and role. A role change is refused on the caller's
// own account and while the account is still referenced by tickets in its
// current role.
func (s *UserService) Update(ctx context.Context, caller domain.Caller, id int64, in UserUpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" {
		fields["username"] = "Username is required."
	}
	if in.Email == "" {
		fields["email"] = "Email is required."
	}
	if !in.Role.Valid() {
		fields["role"] = "Role must be Usuario, Técnico or Admin."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldErrors(fields)
	}

	if in.Role != user.Role {
		if caller.ID == id {
			return nil, apperrors.NewConflict("You cannot change your own role.", nil)
		}
		referenced, err := s.hasTicketsAs(ctx, user)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, apperrors.NewConflict("User still has tickets in role "+string(user.Role)+".", nil)
		}
	}

	user.Username = in.Username
	user.Email = in.Email
	user.Role = in.Role
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewFieldErrors(map[string]string{"email": "Email is already registered."})
		}
		return nil, mapRepoError(err, "user")
	}
	s.logger.Info("user updated", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Delete removes an account that no ticket references. Admins cannot remove
// themselves.
func (s *UserService) Delete(ctx context.Context, caller domain.Caller, id int64) error {
	if !auth.CanMutateUser(caller) {
		return errUserAdminOnly
	}
	if caller.ID == id {
		return apperrors.NewConflict("You cannot delete your own account.", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return apperrors.NewConflict("User still has tickets and cannot be deleted.", nil)
		}
		return mapRepoError(err, "user")
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

func (s *UserService) hasTicketsAs(ctx context.Context, user *domain.User) (bool, error) {
	var filter repository.TicketFilter
	switch user.Role {
	case domain.RoleUsuario:
		filter.RequesterID = &user.ID
	case domain.RoleTecnico:
		filter.TechnicianID = &user.ID
	default:
		return false, nil
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return false, mapRepoError(err, "ticket")
	}
	return len(tickets) > 0, nil
}
