package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/session"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	TicketPages *handlers.TicketPagesHandler
	Tickets     *handlers.TicketsHandler
	Users       *handlers.UsersHandler
	Sessions    session.Store
	Middleware  *auth.SessionMiddleware

	// OpenJSONAPI exposes the JSON ticket routes without a session.
	OpenJSONAPI  bool
	CSRFEnabled  bool
	CookieSecure bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(requestid.New())

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Use(cfg.Middleware.Load)
	if cfg.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:_csrf",
			CookieName:     "helpdesk_csrf",
			CookieSameSite: "Lax",
			CookieSecure:   cfg.CookieSecure,
			CookieHTTPOnly: true,
			Expiration:     time.Hour,
			ContextKey:     handlers.CSRFContextKey,
			// JSON clients do not carry the form token.
			Next: func(c *fiber.Ctx) bool {
				return c.Is("json") || c.Method() == fiber.MethodPut || c.Method() == fiber.MethodDelete
			},
		}))
	}

	page := cfg.Middleware.RequirePage

	app.Get("/", cfg.Auth.Index)
	app.Get("/login", cfg.Auth.LoginForm)
	app.Post("/login", cfg.Auth.Login)
	app.Post("/logout", cfg.Auth.Logout)
	app.Get("/register", cfg.Auth.RegisterForm)
	app.Post("/register", cfg.Auth.Register)
	app.Get("/cambiar-password", page, cfg.Auth.ChangePasswordForm)
	app.Post("/cambiar-password", page, cfg.Auth.ChangePassword)
	app.Get("/dashboard", page, cfg.TicketPages.Dashboard)

	api := []fiber.Handler{markAPI}
	if !cfg.OpenJSONAPI {
		api = append(api, cfg.Middleware.RequireAPI)
	}
	withAPI := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, api...), h)
	}

	// /tickets/nuevo must be registered before /tickets/:id.
	app.Get("/tickets/nuevo", page, cfg.TicketPages.New)
	app.Get("/tickets", withAPI(cfg.Tickets.ListTickets)...)
	app.Post("/tickets", byContentType(cfg.Tickets.CreateTicket, cfg.TicketPages.Create))
	app.Get("/tickets/:id/editar", page, cfg.TicketPages.Edit)
	app.Post("/tickets/:id/editar", page, cfg.TicketPages.Update)
	app.Post("/tickets/:id/eliminar", page, cfg.TicketPages.Delete)
	app.Get("/tickets/:id", withAPI(cfg.Tickets.GetTicket)...)
	app.Put("/tickets/:id", withAPI(cfg.Tickets.UpdateTicket)...)
	app.Delete("/tickets/:id", withAPI(cfg.Tickets.DeleteTicket)...)

	users := app.Group("/usuarios", page, auth.RequireAdminPage(cfg.Sessions))
	users.Get("", cfg.Users.List)
	users.Get("/:id/editar", cfg.Users.Edit)
	users.Post("/:id/editar", cfg.Users.Update)
	users.Post("/:id/eliminar", cfg.Users.Delete)
}

// byContentType sends JSON bodies to the API handler and form posts to the
// page handler. Both handlers check the session themselves.
func byContentType(jsonHandler, formHandler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Is("json") {
			c.Locals(apiRouteKey, true)
			return jsonHandler(c)
		}
		return formHandler(c)
	}
}
