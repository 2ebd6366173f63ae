package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const apiRouteKey = "api_route"

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, sessions session.Store, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics, sessions))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// markAPI flags the request as a JSON API call for error rendering.
func markAPI(c *fiber.Ctx) error {
	c.Locals(apiRouteKey, true)
	return c.Next()
}

func wantsJSON(c *fiber.Ctx) bool {
	if api, ok := c.Locals(apiRouteKey).(bool); ok && api {
		return true
	}
	if c.Is("json") {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, sessions session.Store) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					logger.Error("request failed", zap.Error(domainErr), zap.String("path", c.Path()))
				} else if domainErr.Code == apperrors.CodeForbidden {
					fields := []zap.Field{zap.String("path", c.Path()), zap.String("method", c.Method())}
					if caller, ok := auth.CallerFromContext(c); ok {
						fields = append(fields, zap.Int64("user_id", caller.ID), zap.String("role", string(caller.Role)))
					}
					logger.Info("permission denied", fields...)
				}
				if wantsJSON(c) {
					err = writeJSONError(c, domainErr)
				} else {
					err = writeHTMLError(c, sessions, domainErr)
				}
			}
		}()
		return c.Next()
	}
}

// toDomainError also maps fiber's own errors (unknown route, CSRF
// rejection, body limits) onto the taxonomy.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := apperrors.CodeInternal
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			code = apperrors.CodeNotFound
		case fiber.StatusForbidden:
			code = apperrors.CodeForbidden
		case fiber.StatusUnauthorized:
			code = apperrors.CodeUnauthorized
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
			code = apperrors.CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = apperrors.CodeNotFound
		}
		return apperrors.NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	return apperrors.ToDomainError(err)
}

func writeJSONError(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}

func writeHTMLError(c *fiber.Ctx, sessions session.Store, domainErr *apperrors.DomainError) error {
	switch domainErr.Code {
	case apperrors.CodeUnauthorized:
		return c.Redirect("/login", fiber.StatusSeeOther)
	case apperrors.CodeForbidden:
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		if err := sessions.PushFlash(c.UserContext(), principal.SessionID, domainErr.Message); err != nil && !errors.Is(err, session.ErrNotFound) {
			return err
		}
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	message := domainErr.Message
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		message = "Something went wrong. Please try again later."
	}
	c.Status(domainErr.HTTPStatus)
	if renderErr := c.Render("error", fiber.Map{
		"Title":   "Error",
		"Status":  domainErr.HTTPStatus,
		"Message": message,
	}); renderErr != nil {
		return c.Status(domainErr.HTTPStatus).SendString(message)
	}
	return nil
}
