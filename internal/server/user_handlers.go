package server

import (
	"gigfolio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /home
func (s *Server) Home(c *fiber.Ctx) error {
	user, err := s.userService.ViewProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(fiber.Map{"user_name": user.Name})
}

// GetProfile handles GET /profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.userService.ViewProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(user)
}

// UpdateProfile handles POST /profile and redirects to /home.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), c.FormValue("fullName"), c.FormValue("skills"))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Redirect("/home", fiber.StatusFound)
}
