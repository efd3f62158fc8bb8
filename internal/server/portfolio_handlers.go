package server

import (
	"errors"
	"path/filepath"

	"gigfolio/internal/models"
	"gigfolio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPortfolio handles GET /portfolio
func (s *Server) GetPortfolio(c *fiber.Ctx) error {
	files, err := s.portfolioService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(fiber.Map{"files": files})
}

// UploadPortfolioFile handles POST /portfolio. A request without a file part is
// sent back to the listing without creating anything.
func (s *Server) UploadPortfolioFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil || file.Filename == "" {
		return c.Redirect("/portfolio", fiber.StatusFound)
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	_, err = s.portfolioService.Upload(c.UserContext(), service.UploadInput{
		UserID:   currentUserID(c),
		Filename: file.Filename,
		Content:  src,
	})
	if err != nil {
		if errors.Is(err, models.ErrNoFileProvided) {
			return c.Redirect("/portfolio", fiber.StatusFound)
		}
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Redirect("/portfolio", fiber.StatusFound)
}

// ServeUpload handles GET /uploads/:filename. The file is opened on every request,
// so a same-name upload is served in full right away.
func (s *Server) ServeUpload(c *fiber.Ctx) error {
	path, err := s.portfolioService.Resolve(c.Params("filename"))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	c.Type(filepath.Ext(path))
	return c.Response().SendFile(path)
}
