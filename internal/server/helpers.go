package server

import (
	"context"
	"errors"
	"time"

	"gigfolio/internal/middleware"
	"gigfolio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError picks the HTTP status for an error returned by a service.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeDuplicateEmail:
		return fiber.StatusConflict
	case models.CodeInvalidCredentials, models.CodeSessionRequired:
		return fiber.StatusUnauthorized
	case models.CodeValidation, models.CodeNoFile, models.CodeDisallowedExtension:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// currentUserID returns the id SessionRequired stored on the request.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   s.cookieMaxAge(),
		Secure:   s.config.SessionCookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		Secure:   s.config.SessionCookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// SessionRequired resolves the session cookie to a user id. Requests without a
// valid session are redirected to /login and their stale cookie is cleared.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(s.config.SessionCookieName)
		userID, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			if !errors.Is(err, models.ErrSessionRequired) {
				return models.RespondWithError(c, mapServiceError(err), err)
			}
			if token != "" {
				s.clearSessionCookie(c)
			}
			return c.Redirect("/login", fiber.StatusFound)
		}

		c.Locals("userID", userID)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}
