package server

import (
	"log/slog"

	"gigfolio/internal/middleware"
	"gigfolio/internal/models"
	"gigfolio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FormDescription lists the form fields a POST to the same path expects.
type FormDescription struct {
	Action string   `json:"action"`
	Fields []string `json:"fields"`
}

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":  "Gigfolio",
		"links": []string{"/register", "/login", "/home", "/profile", "/portfolio", "/test", "/logout"},
	})
}

// RegisterForm handles GET /register
func (s *Server) RegisterForm(c *fiber.Ctx) error {
	return c.JSON(FormDescription{Action: "/register", Fields: []string{"fullName", "email", "password"}})
}

// Register handles POST /register and redirects to /login on success.
func (s *Server) Register(c *fiber.Ctx) error {
	_, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Name:     c.FormValue("fullName"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Redirect("/login", fiber.StatusFound)
}

// LoginForm handles GET /login
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return c.JSON(FormDescription{Action: "/login", Fields: []string{"email", "password"}})
}

// Login handles POST /login. A successful login replaces any session the client held.
func (s *Server) Login(c *fiber.Ctx) error {
	prior := c.Cookies(s.config.SessionCookieName)

	token, _, err := s.authService.Login(c.UserContext(), c.FormValue("email"), c.FormValue("password"), prior)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	s.setSessionCookie(c, token)
	return c.Redirect("/home", fiber.StatusFound)
}

// Logout handles GET /logout. The cookie is cleared even when the store could not
// delete the session.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), c.Cookies(s.config.SessionCookieName)); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to delete session on logout",
			slog.String("error", err.Error()))
	}
	s.clearSessionCookie(c)
	return c.Redirect("/", fiber.StatusFound)
}
