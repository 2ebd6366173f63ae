package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/session"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	sessions *session.MemoryStore
	auth     *AuthService
	tickets  *TicketService
	users    *UserService

	admin   *domain.User
	tech    *domain.User
	tech2   *domain.User
	usuario *domain.User
}

func testConfig() config.Config {
	return config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", BcryptCost: 4},
		Session: config.SessionConfig{TTLMinutes: 60},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sessions := session.NewMemoryStoreWithClock(func() time.Time { return fixedNow })

	f := &fixture{
		store:    store,
		sessions: sessions,
		auth: NewAuthService(testConfig(), AuthDependencies{
			UserRepo: store.Users(),
			Sessions: sessions,
		}),
		tickets: NewTicketService(TicketDependencies{
			TicketRepo: store.Tickets(),
			UserRepo:   store.Users(),
			Clock:      func() time.Time { return fixedNow },
		}),
		users: NewUserService(UserDependencies{
			UserRepo:   store.Users(),
			TicketRepo: store.Tickets(),
		}),
	}
	f.auth.now = func() time.Time { return fixedNow }

	f.admin = f.addUser(t, "admin", "admin@example.com", domain.RoleAdmin)
	f.tech = f.addUser(t, "tech", "tech@example.com", domain.RoleTecnico)
	f.tech2 = f.addUser(t, "tech2", "tech2@example.com", domain.RoleTecnico)
	f.usuario = f.addUser(t, "ana", "ana@example.com", domain.RoleUsuario)
	return f
}

func (f *fixture) addUser(t *testing.T, username, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("secret1", 4)
	require.NoError(t, err)
	user := &domain.User{Username: username, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) addTicket(t *testing.T, subject string, requester, technician *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateUngated(context.Background(), TicketInput{
		Subject:      subject,
		Description:  "details",
		Priority:     domain.TicketPriorityMedia,
		Status:       domain.TicketStatusAbierto,
		RequesterID:  requester.ID,
		TechnicianID: technician.ID,
	})
	require.NoError(t, err)
	return ticket
}
