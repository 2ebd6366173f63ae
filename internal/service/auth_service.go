package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned by Authenticate for any mismatch.
var ErrInvalidCredentials = apperrors.NewUnauthorized("invalid email or password")

// AuthService owns credentials and sessions.
type AuthService struct {
	users      repository.UserRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Sessions session.Store
	Logger   *zap.Logger
}

// RegisterInput describes a self-service sign up.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User      *domain.User
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Session.TTL()),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Authenticate returns the user owning email when password matches.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, mapRepoError(err, "user")
	}
	if !s.CheckPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CheckPassword compares candidate against the stored hash.
func (s *AuthService) CheckPassword(user *domain.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return auth.ComparePassword(user.PasswordHash, candidate) == nil
}

// SetPassword hashes newPassword and persists it on user.
func (s *AuthService) SetPassword(ctx context.Context, user *domain.User, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperrors.NewFieldErrors(map[string]string{
			"new_password": "Password must be at least 6 characters.",
		})
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	previous := user.PasswordHash
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		user.PasswordHash = previous
		return mapRepoError(err, "user")
	}
	return nil
}

// ChangePassword verifies current before replacing the caller's password.
// On mismatch the stored hash is left untouched.
func (s *AuthService) ChangePassword(ctx context.Context, caller domain.Caller, current, newPassword string) error {
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return mapRepoError(err, "user")
	}
	if !s.CheckPassword(user, current) {
		s.logger.Info("password change rejected", zap.Int64("user_id", caller.ID))
		return apperrors.NewFieldErrors(map[string]string{
			"old_password": "Current password is incorrect.",
		})
	}
	return s.SetPassword(ctx, user, newPassword)
}

// Register creates a Usuario or Técnico account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	fields := map[string]string{}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" {
		fields["username"] = "Username is required."
	}
	if in.Email == "" {
		fields["email"] = "Email is required."
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 6 characters."
	}
	if in.Role != domain.RoleUsuario && in.Role != domain.RoleTecnico {
		fields["role"] = "Role must be Usuario or Técnico."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldErrors(fields)
	}
	return s.createUser(ctx, in.Username, in.Email, in.Password, in.Role)
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewFieldErrors(map[string]string{"email": "Email is already registered."})
		}
		return nil, mapRepoError(err, "user")
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login authenticates and opens a server-side session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login failed", zap.String("email", strings.ToLower(strings.TrimSpace(email))))
		}
		return nil, err
	}

	now := s.now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenMgr.TTL()),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(sess.ID, user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, SessionID: sess.ID, Token: token, ExpiresAt: exp}, nil
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// EnsureAdmin creates an Admin account unless email is already taken.
// It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, mapRepoError(err, "user")
	}
	if _, err := s.createUser(ctx, username, email, password, domain.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
