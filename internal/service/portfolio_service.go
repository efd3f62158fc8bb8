package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gigfolio/internal/middleware"
	"gigfolio/internal/models"
	"gigfolio/internal/observability"
	"gigfolio/internal/repository"
	"gigfolio/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// AllowedExtension reports whether name ends in pdf, png, jpg or jpeg, ignoring case.
func AllowedExtension(name string) bool {
	_, ok := allowedExtensions[storage.Extension(name)]
	return ok
}

type PortfolioService struct {
	repo            repository.PortfolioRepository
	dir             *storage.Dir
	namespaceByUser bool
}

type UploadInput struct {
	UserID   uint
	Filename string
	Content  io.Reader
}

// NewPortfolioService stores files in dir. With namespaceByUser set, stored names get a
// "<userID>_" prefix so different users cannot overwrite each other's files.
func NewPortfolioService(repo repository.PortfolioRepository, dir *storage.Dir, namespaceByUser bool) *PortfolioService {
	return &PortfolioService{repo: repo, dir: dir, namespaceByUser: namespaceByUser}
}

// List returns the user's stored filenames in upload order.
func (s *PortfolioService) List(ctx context.Context, userID uint) ([]string, error) {
	return s.repo.ListFilenamesByUser(ctx, userID)
}

// Upload sanitizes the name, checks the extension, writes the file and records it.
// It returns the stored filename.
func (s *PortfolioService) Upload(ctx context.Context, in UploadInput) (string, error) {
	span, ctx := observability.NewSpan(ctx, "PortfolioService.Upload",
		attribute.Int64("user.id", int64(in.UserID)))
	defer span.End()

	if in.Content == nil || in.Filename == "" {
		observability.UploadsTotal.WithLabelValues("no_file").Inc()
		return "", models.NewNoFileError()
	}

	name := storage.SecureFilename(in.Filename)
	if !AllowedExtension(name) {
		observability.UploadsTotal.WithLabelValues("disallowed_extension").Inc()
		return "", models.NewDisallowedExtensionError(in.Filename)
	}
	if s.namespaceByUser {
		name = fmt.Sprintf("%d_%s", in.UserID, name)
	}

	if err := s.dir.Save(name, in.Content); err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		span.SetError(err)
		return "", models.NewInternalError(err)
	}

	if err := s.repo.Create(ctx, &models.PortfolioItem{UserID: in.UserID, Filename: name}); err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		span.SetError(err)
		return "", err
	}

	observability.UploadsTotal.WithLabelValues("success").Inc()
	middleware.Logger.InfoContext(ctx, "portfolio file stored", slog.String("filename", name))
	return name, nil
}

// Resolve returns the on-disk path of a stored file. Any caller may resolve any name.
func (s *PortfolioService) Resolve(name string) (string, error) {
	path, err := s.dir.Resolve(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", models.NewNotFoundError("File", name)
		}
		return "", models.NewInternalError(err)
	}
	return path, nil
}
